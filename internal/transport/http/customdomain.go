package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/service"
)

// listCustomDomains 列出当前用户的自定义域名
func (h *Handler) listCustomDomains(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	domains, err := h.domains.List(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"customDomains": domains})
}

type createCustomDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// createCustomDomain 登记一个自定义域名（未验证状态）
func (h *Handler) createCustomDomain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createCustomDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	cd, err := h.domains.Create(user.ID, req.Domain)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, cd)
}

// getCustomDomain 取域名详情及其邮箱集合
func (h *Handler) getCustomDomain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	cd, err := h.domains.Get(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	mailboxes, err := h.store.ListDomainMailboxes(cd.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"customDomain": cd,
		"mailboxes":    mailboxes,
	})
}

type updateCustomDomainRequest struct {
	Name                   *string `json:"name,omitempty"`
	CatchAll               *bool   `json:"catchAll,omitempty"`
	RandomPrefixGeneration *bool   `json:"randomPrefixGeneration,omitempty"`
}

// updateCustomDomain 修改域名的可变字段
func (h *Handler) updateCustomDomain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateCustomDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	cd, err := h.domains.Update(user.ID, c.Param("id"), service.UpdateCustomDomainInput{
		Name:                   req.Name,
		CatchAll:               req.CatchAll,
		RandomPrefixGeneration: req.RandomPrefixGeneration,
	})
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, cd)
}

// deleteCustomDomain 删除域名并连带删除其上的所有别名
func (h *Handler) deleteCustomDomain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteCustomDomain(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

type setDomainMailboxesRequest struct {
	MailboxIDs []string `json:"mailboxIds" binding:"required"`
}

// setDomainMailboxes 整体替换域名的 catch-all 邮箱集合
func (h *Handler) setDomainMailboxes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req setDomainMailboxesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.domains.SetMailboxes(user.ID, c.Param("id"), req.MailboxIDs); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

// listDomainRules 列出域名的自动创建规则
func (h *Handler) listDomainRules(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	rules, err := h.domains.ListRules(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"rules": rules})
}

type createDomainRuleRequest struct {
	Regex      string   `json:"regex" binding:"required"`
	Order      int      `json:"order"`
	MailboxIDs []string `json:"mailboxIds,omitempty"`
}

// createDomainRule 新增一条自动创建规则
func (h *Handler) createDomainRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createDomainRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	rule, err := h.domains.CreateRule(user.ID, c.Param("id"), req.Regex, req.Order, req.MailboxIDs)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, rule)
}

// deleteDomainRule 删除一条自动创建规则
func (h *Handler) deleteDomainRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.domains.DeleteRule(user.ID, c.Param("id"), c.Param("ruleId")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}

// listDomainTrash 列出域名级回收站
func (h *Handler) listDomainTrash(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	records, err := h.domains.ListTrash(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"deletedAliases": records})
}
