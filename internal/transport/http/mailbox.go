package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/service"
)

// listMailboxes 列出当前用户的全部邮箱
func (h *Handler) listMailboxes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	mailboxes, err := h.mailboxes.List(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"mailboxes":        mailboxes,
		"defaultMailboxId": user.DefaultMailboxID,
	})
}

type createMailboxRequest struct {
	Email string `json:"email" binding:"required"`
}

// createMailbox 登记一个新的收件邮箱（未验证状态）
func (h *Handler) createMailbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mailbox, err := h.mailboxes.Create(user.ID, req.Email)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, mailbox)
}

// verifyMailbox 标记邮箱验证通过
func (h *Handler) verifyMailbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	mailbox, err := h.mailboxes.Verify(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, mailbox)
}

type updateMailboxRequest struct {
	Disabled     *bool   `json:"disabled,omitempty"`
	PGPPublicKey *string `json:"pgpPublicKey,omitempty"`
	DisablePGP   *bool   `json:"disablePgp,omitempty"`
}

// updateMailbox 修改邮箱的可变字段
func (h *Handler) updateMailbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mailbox, err := h.mailboxes.Update(user.ID, c.Param("id"), service.UpdateMailboxInput{
		Disabled:     req.Disabled,
		PGPPublicKey: req.PGPPublicKey,
		DisablePGP:   req.DisablePGP,
	})
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, mailbox)
}

// setDefaultMailbox 把邮箱设为用户默认邮箱
func (h *Handler) setDefaultMailbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.mailboxes.SetDefault(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

// deleteMailbox 删除邮箱并迁移其上的别名
func (h *Handler) deleteMailbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteMailbox(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}
