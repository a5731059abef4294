package domain

import "errors"

// 业务哨兵错误。存储层和服务层返回这些错误，
// 传输层据此映射 HTTP 状态码。
var (
	// ErrQuotaExceeded 免费套餐别名数量已达上限
	ErrQuotaExceeded = errors.New("alias quota exceeded")

	// ErrAddressInTrash 地址在回收站中，永远不能复用
	ErrAddressInTrash = errors.New("address was deleted before and cannot be reused")

	// ErrAddressExists 地址已被别名或邮箱占用
	ErrAddressExists = errors.New("address already exists")

	// ErrGenerationExhausted 在重试上限内没能生成可用地址
	ErrGenerationExhausted = errors.New("cannot generate an available address")

	// ErrInvalidPrefix 自定义别名前缀不合法
	ErrInvalidPrefix = errors.New("invalid alias prefix")

	// ErrSuffixTokenInvalid 后缀令牌无效、过期或已被消费
	ErrSuffixTokenInvalid = errors.New("suffix token invalid or expired")

	// ErrIllegalOperation 业务规则禁止的操作
	ErrIllegalOperation = errors.New("operation not permitted")

	// ErrContactExists 同一别名下该外部地址已有联系人
	ErrContactExists = errors.New("contact already exists")

	// ErrTransferTokenInvalid 转移令牌无效或已被使用
	ErrTransferTokenInvalid = errors.New("transfer token invalid")

	// ErrDomainNotAllowed 域名不在允许列表且不属于该用户
	ErrDomainNotAllowed = errors.New("domain not allowed")

	// ErrMailboxNotVerified 邮箱未验证或已停用，不能作为投递目标
	ErrMailboxNotVerified = errors.New("mailbox not verified")

	// ErrNotOwner 资源不属于当前用户
	ErrNotOwner = errors.New("not the owner of this resource")

	ErrUserNotFound      = errors.New("user not found")
	ErrMailboxNotFound   = errors.New("mailbox not found")
	ErrAliasNotFound     = errors.New("alias not found")
	ErrContactNotFound   = errors.New("contact not found")
	ErrDomainNotFound    = errors.New("custom domain not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrApiKeyNotFound    = errors.New("api key not found")
)
