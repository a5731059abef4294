package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/service"
)

// currentUser 从上下文取出认证中间件放入的用户
func currentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return nil, false
	}
	return v.(*domain.User), true
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return page, pageSize
}

// aliasResponse 别名响应载荷
type aliasResponse struct {
	*domain.Alias
	Mailboxes []domain.Mailbox `json:"mailboxes,omitempty"`
}

// listAliases 分页列出当前用户的别名，置顶在前
func (h *Handler) listAliases(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	aliases, total, err := h.aliases.ListAliases(user.ID, page, pageSize)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"aliases":  aliases,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

type createRandomAliasRequest struct {
	Mode   string `json:"mode,omitempty"`   // word | uuid，缺省使用用户偏好
	Domain string `json:"domain,omitempty"` // 目标域名，缺省走默认域名链
	Note   string `json:"note,omitempty"`
}

// createRandomAlias 生成一个随机别名
func (h *Handler) createRandomAlias(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createRandomAliasRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	scheme := user.AliasScheme
	switch req.Mode {
	case "":
	case "word":
		scheme = domain.AliasSchemeWord
	case "uuid":
		scheme = domain.AliasSchemeUUID
	default:
		BadRequest(c, "mode 只支持 word 或 uuid")
		return
	}

	alias, err := h.aliases.CreateRandomAlias(user.ID, scheme, req.Domain, req.Note)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, aliasResponse{Alias: alias})
}

// aliasOptions 列出创建自定义别名可用的后缀及其一次性令牌
func (h *Handler) aliasOptions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	options, err := h.aliases.SuffixOptions(c.Request.Context(), user)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"canCreate": h.canCreate(user),
		"suffixes":  options,
	})
}

func (h *Handler) canCreate(user *domain.User) bool {
	ok, err := h.activity.CanCreateNewAlias(user)
	if err != nil {
		return false
	}
	return ok
}

type createCustomAliasRequest struct {
	Prefix      string   `json:"prefix" binding:"required"`
	SuffixToken string   `json:"suffixToken" binding:"required"`
	MailboxIDs  []string `json:"mailboxIds,omitempty"`
	Note        string   `json:"note,omitempty"`
	Name        string   `json:"name,omitempty"`
}

// createCustomAlias 用前缀和后缀令牌创建自定义别名
func (h *Handler) createCustomAlias(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createCustomAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.CreateCustomAlias(c.Request.Context(), user.ID, req.Prefix, req.SuffixToken, req.MailboxIDs, req.Note, req.Name)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, aliasResponse{Alias: alias})
}

// getAlias 取单个别名及其邮箱
func (h *Handler) getAlias(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	alias, err := h.aliases.GetAlias(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	mailboxes, err := h.aliases.AliasMailboxes(alias)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, aliasResponse{Alias: alias, Mailboxes: mailboxes})
}

type updateAliasRequest struct {
	Name       *string `json:"name,omitempty"`
	Note       *string `json:"note,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
	Pinned     *bool   `json:"pinned,omitempty"`
	DisablePGP *bool   `json:"disablePgp,omitempty"`
}

// updateAlias 修改别名的可变字段
func (h *Handler) updateAlias(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.UpdateAlias(user.ID, c.Param("id"), service.UpdateAliasInput{
		Name:       req.Name,
		Note:       req.Note,
		Enabled:    req.Enabled,
		Pinned:     req.Pinned,
		DisablePGP: req.DisablePGP,
	})
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, aliasResponse{Alias: alias})
}

// deleteAlias 删除别名（进入回收站）
func (h *Handler) deleteAlias(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteAlias(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

type setAliasMailboxesRequest struct {
	MailboxIDs []string `json:"mailboxIds" binding:"required,min=1"`
}

// setAliasMailboxes 整体替换别名的邮箱集合，第一个为主邮箱
func (h *Handler) setAliasMailboxes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req setAliasMailboxesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.SetMailboxes(user.ID, c.Param("id"), req.MailboxIDs)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, aliasResponse{Alias: alias})
}

// getAliasStats 单个别名的流转统计
func (h *Handler) getAliasStats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	alias, err := h.aliases.GetAlias(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	stats, err := h.activity.GetAliasStats(alias.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, stats)
}

// beginAliasTransfer 生成一次性转移令牌
func (h *Handler) beginAliasTransfer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	token, err := h.lifecycle.BeginTransfer(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"token": token})
}

type completeTransferRequest struct {
	Token string `json:"token" binding:"required"`
}

// completeAliasTransfer 用令牌把别名接收到当前账户
func (h *Handler) completeAliasTransfer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req completeTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.lifecycle.CompleteTransfer(req.Token, user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, aliasResponse{Alias: alias})
}
