package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/domain"
)

// contactResponse 联系人响应载荷，附带两个方向的渲染结果
type contactResponse struct {
	*domain.Contact
	ReplyTo string `json:"replyTo"` // 回复时使用的收件头
	SendTo  string `json:"sendTo"`  // 主动发信时使用的收件头
}

func (h *Handler) renderContact(contact *domain.Contact, user *domain.User) contactResponse {
	return contactResponse{
		Contact: contact,
		ReplyTo: h.contacts.RenderForReply(contact, user),
		SendTo:  h.contacts.RenderForSend(contact, user),
	}
}

// listContacts 分页列出别名的联系人
func (h *Handler) listContacts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	contacts, total, err := h.contacts.ListContacts(user.ID, c.Param("id"), page, pageSize)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	rendered := make([]contactResponse, 0, len(contacts))
	for i := range contacts {
		rendered = append(rendered, h.renderContact(&contacts[i], user))
	}

	Success(c, gin.H{
		"contacts": rendered,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

type createContactRequest struct {
	Contact string `json:"contact" binding:"required"` // 外部地址，可带显示名
}

// createContact 为别名建立联系人（反向别名），幂等
func (h *Handler) createContact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.GetAlias(user.ID, c.Param("id"))
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	_, email := domain.ParseFullAddress(req.Contact)
	if email == "" {
		BadRequest(c, "联系人地址格式无效")
		return
	}

	contact, err := h.contacts.GetOrCreate(alias, email, req.Contact, email)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, h.renderContact(contact, user))
}

// deleteContact 删除联系人
func (h *Handler) deleteContact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.contacts.DeleteContact(user.ID, c.Param("contactId")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}
