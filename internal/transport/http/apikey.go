package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/domain"
)

// apiKeyResponse API Key 响应载荷。Code 只在创建时返回一次。
type apiKeyResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code,omitempty"`
	Times      int     `json:"times"`
	LastUsedAt *string `json:"lastUsedAt,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

func renderApiKey(key *domain.ApiKey, includeCode bool) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Times:     key.Times,
		CreatedAt: key.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if includeCode {
		resp.Code = key.Code
	}
	if key.LastUsedAt != nil {
		formatted := key.LastUsedAt.Format("2006-01-02 15:04:05")
		resp.LastUsedAt = &formatted
	}
	return resp
}

type createApiKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// createApiKey 创建 API Key，明文只返回这一次
func (h *Handler) createApiKey(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createApiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	key, err := h.keys.Create(user.ID, req.Name)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, renderApiKey(key, true))
}

// listApiKeys 列出当前用户的 API Key（不含明文）
func (h *Handler) listApiKeys(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	keys, err := h.keys.List(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	rendered := make([]apiKeyResponse, 0, len(keys))
	for i := range keys {
		rendered = append(rendered, renderApiKey(&keys[i], false))
	}

	Success(c, gin.H{"apiKeys": rendered})
}

// deleteApiKey 吊销一个 API Key
func (h *Handler) deleteApiKey(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.keys.Delete(user.ID, c.Param("id")); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}
