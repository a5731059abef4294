package httptransport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/service"
)

// userResponse 用户响应载荷，不含密码散列
type userResponse struct {
	ID                         string              `json:"id"`
	Email                      string              `json:"email"`
	Name                       string              `json:"name,omitempty"`
	AliasScheme                domain.AliasScheme  `json:"aliasScheme"`
	SuffixStyle                domain.SuffixStyle  `json:"suffixStyle"`
	SenderFormat               domain.SenderFormat `json:"senderFormat"`
	DefaultMailboxID           *string             `json:"defaultMailboxId,omitempty"`
	DefaultAliasCustomDomainID *string             `json:"defaultAliasCustomDomainId,omitempty"`
	DefaultAliasPublicDomainID *string             `json:"defaultAliasPublicDomainId,omitempty"`
	InTrial                    bool                `json:"inTrial"`
	Premium                    bool                `json:"premium"`
}

func (h *Handler) renderUser(user *domain.User) userResponse {
	return userResponse{
		ID:                         user.ID,
		Email:                      user.Email,
		Name:                       user.Name,
		AliasScheme:                user.AliasScheme,
		SuffixStyle:                user.SuffixStyle,
		SenderFormat:               user.SenderFormat,
		DefaultMailboxID:           user.DefaultMailboxID,
		DefaultAliasCustomDomainID: user.DefaultAliasCustomDomainID,
		DefaultAliasPublicDomainID: user.DefaultAliasPublicDomainID,
		InTrial:                    user.InTrial(time.Now()),
		Premium:                    h.activity.Entitled(user),
	}
}

// getUser 当前用户信息
func (h *Handler) getUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	Success(c, h.renderUser(user))
}

type updateSettingsRequest struct {
	Name         *string `json:"name,omitempty"`
	AliasScheme  *int    `json:"aliasScheme,omitempty"`
	SuffixStyle  *int    `json:"suffixStyle,omitempty"`
	SenderFormat *int    `json:"senderFormat,omitempty"`
}

// updateSettings 修改用户偏好
func (h *Handler) updateSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	input := service.UpdateSettingsInput{Name: req.Name}
	if req.AliasScheme != nil {
		scheme := domain.AliasScheme(*req.AliasScheme)
		input.AliasScheme = &scheme
	}
	if req.SuffixStyle != nil {
		style := domain.SuffixStyle(*req.SuffixStyle)
		input.SuffixStyle = &style
	}
	if req.SenderFormat != nil {
		format := domain.SenderFormat(*req.SenderFormat)
		input.SenderFormat = &format
	}

	updated, err := h.users.UpdateSettings(user.ID, input)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, h.renderUser(updated))
}

type setDefaultAliasDomainRequest struct {
	CustomDomainID *string `json:"customDomainId,omitempty"`
	PublicDomainID *string `json:"publicDomainId,omitempty"`
}

// setDefaultAliasDomain 设置随机别名的默认域名，两个字段至多一个非空
func (h *Handler) setDefaultAliasDomain(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req setDefaultAliasDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	updated, err := h.users.SetDefaultAliasDomain(user.ID, req.CustomDomainID, req.PublicDomainID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, h.renderUser(updated))
}

// getUserStats 用户级流转统计
func (h *Handler) getUserStats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.activity.GetUserStats(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	aliasCount, err := h.store.CountAliasesByUser(user.ID)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"stats":      stats,
		"aliasCount": aliasCount,
		"aliasLimit": h.activity.AliasLimit(user),
	})
}

// listActivities 最近的流转记录
func (h *Handler) listActivities(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := h.activity.ListRecent(user.ID, limit)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{"activities": logs})
}

// requestAccountDeletion 发起账号删除（异步任务处理）
func (h *Handler) requestAccountDeletion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.users.RequestAccountDeletion(user.ID); err != nil {
		Fail(c, h.log, err)
		return
	}

	NoContent(c)
}
