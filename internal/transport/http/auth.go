package httptransport

import (
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name,omitempty"`
}

// register 注册新用户，注册邮箱自动成为已验证的默认邮箱
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.users.Create(req.Email, req.Password, req.Name)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Created(c, h.renderUser(user))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Device   string `json:"device,omitempty"` // 签发的 API Key 名称
}

// login 用邮箱密码换取一个新的 API Key
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.users.VerifyPassword(req.Email, req.Password)
	if err != nil {
		// 统一提示，不泄露账号是否存在
		Unauthorized(c, "邮箱或密码错误")
		return
	}

	name := req.Device
	if name == "" {
		name = "login"
	}
	key, err := h.keys.Create(user.ID, name)
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"apiKey": key.Code,
		"user":   h.renderUser(user),
	})
}
