package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	domain.ErrQuotaExceeded:        "别名数量已达免费套餐上限，请升级后再试",
	domain.ErrAddressInTrash:       "该地址已被删除过，不能重复使用",
	domain.ErrAddressExists:        "该地址已被占用",
	domain.ErrInvalidPrefix:        "别名前缀格式无效",
	domain.ErrSuffixTokenInvalid:   "后缀令牌无效或已过期，请重新获取",
	domain.ErrDomainNotAllowed:     "域名不在允许列表中",
	domain.ErrIllegalOperation:     "该操作不被允许",
	domain.ErrContactExists:        "该联系人已存在",
	domain.ErrMailboxNotVerified:   "邮箱尚未通过验证，不能用于接收转发",
	domain.ErrTransferTokenInvalid: "转移链接无效或已被使用",

	domain.ErrUserNotFound:      "用户不存在",
	domain.ErrAliasNotFound:     "别名不存在",
	domain.ErrMailboxNotFound:   "邮箱不存在",
	domain.ErrContactNotFound:   "联系人不存在",
	domain.ErrDomainNotFound:    "域名不存在",
	domain.ErrDirectoryNotFound: "目录不存在",

	domain.ErrNotOwner: "您不是该资源的所有者",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// Fail 将业务错误映射为 HTTP 响应。
// 回收站冲突 → 409，配额/输入错误 → 400，权限 → 403，
// 不存在 → 404，生成耗尽报警并返回 500。
func Fail(c *gin.Context, log *zap.Logger, err error) {
	msg := GetErrorMessage(err)

	switch {
	case errors.Is(err, domain.ErrAddressInTrash),
		errors.Is(err, domain.ErrAddressExists),
		errors.Is(err, domain.ErrContactExists):
		Conflict(c, msg)

	case errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrInvalidPrefix),
		errors.Is(err, domain.ErrSuffixTokenInvalid),
		errors.Is(err, domain.ErrDomainNotAllowed),
		errors.Is(err, domain.ErrIllegalOperation),
		errors.Is(err, domain.ErrMailboxNotVerified),
		errors.Is(err, domain.ErrTransferTokenInvalid):
		BadRequest(c, msg)

	case errors.Is(err, domain.ErrNotOwner):
		Forbidden(c, msg)

	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAliasNotFound),
		errors.Is(err, domain.ErrMailboxNotFound),
		errors.Is(err, domain.ErrContactNotFound),
		errors.Is(err, domain.ErrDomainNotFound),
		errors.Is(err, domain.ErrDirectoryNotFound):
		NotFound(c, msg)

	case errors.Is(err, domain.ErrGenerationExhausted):
		// 地址空间快用完了，需要运维介入扩充域名或字典
		log.Error("alias generation exhausted",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		InternalError(c, "暂时无法生成新别名，请稍后重试")

	default:
		log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		InternalError(c, MsgInternalError)
	}
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgAuthRequired   = "需要认证"
	MsgInternalError  = "服务器内部错误，请稍后重试"
)
