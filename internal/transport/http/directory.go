package httptransport

import (
	"github.com/gin-gonic/gin"
)

// listDirectories 列出当前用户的目录
func (h *Handler) listDirectories(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	dirs, err := h.dirs.List(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"directories": dirs})
}

type createDirectoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// createDirectory 创建目录
func (h *Handler) createDirectory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	dir, err := h.dirs.Create(user.ID, req.Name)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, dir)
}

type updateDirectoryRequest struct {
	Disabled *bool `json:"disabled,omitempty"`
}

// updateDirectory 启用/停用目录
func (h *Handler) updateDirectory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Disabled == nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	dir, err := h.dirs.SetDisabled(user.ID, c.Param("id"), *req.Disabled)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, dir)
}

// deleteDirectory 删除目录并连带删除其上的所有别名
func (h *Handler) deleteDirectory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteDirectory(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

type setDirectoryMailboxesRequest struct {
	MailboxIDs []string `json:"mailboxIds" binding:"required"`
}

// setDirectoryMailboxes 整体替换目录的邮箱集合
func (h *Handler) setDirectoryMailboxes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req setDirectoryMailboxesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.dirs.SetMailboxes(user.ID, c.Param("id"), req.MailboxIDs); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}
