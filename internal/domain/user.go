package domain

import "time"

// AliasScheme 随机别名的生成方案
type AliasScheme int

const (
	// AliasSchemeWord 两个随机单词拼接
	AliasSchemeWord AliasScheme = 1
	// AliasSchemeUUID uuid4 字符串
	AliasSchemeUUID AliasScheme = 2
)

// Valid 判断方案取值是否合法
func (s AliasScheme) Valid() bool {
	return s == AliasSchemeWord || s == AliasSchemeUUID
}

// SuffixStyle 自定义别名随机后缀的风格
type SuffixStyle int

const (
	// SuffixStyleWord 字典单词后缀
	SuffixStyleWord SuffixStyle = 0
	// SuffixStyleRandomString 随机字母数字后缀
	SuffixStyleRandomString SuffixStyle = 1
)

// SenderFormat 反向别名在邮件客户端中的显示格式
type SenderFormat int

const (
	// SenderFormatAT "user at domain"（默认，混淆 @）
	SenderFormatAT SenderFormat = 0
	// SenderFormatA "user(a)domain"（混淆 @）
	SenderFormatA SenderFormat = 1
	// SenderFormatFull 原样 "user@domain"
	SenderFormatFull SenderFormat = 2
	// SenderFormatNameFull "name | user@domain"
	SenderFormatNameFull SenderFormat = 3
)

// Valid 判断显示格式取值是否合法
func (f SenderFormat) Valid() bool {
	return f >= SenderFormatAT && f <= SenderFormatNameFull
}

// User 表示注册用户的业务实体。
//
// 不变量：DefaultAliasCustomDomainID 与 DefaultAliasPublicDomainID
// 至多只能设置一个，由 UserService.SetDefaultAliasDomain 维护。
type User struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string `json:"name,omitempty" gorm:"type:varchar(128)"`
	PasswordHash string `json:"-" gorm:"type:varchar(255)"` // 不返回给前端

	// 套餐/订阅
	Lifetime bool       `json:"lifetime" gorm:"default:false"`
	TrialEnd *time.Time `json:"trialEnd,omitempty"`

	// 别名生成偏好
	DefaultMailboxID           *string      `json:"defaultMailboxId,omitempty" gorm:"type:varchar(36)"`
	DefaultAliasCustomDomainID *string      `json:"defaultAliasCustomDomainId,omitempty" gorm:"type:varchar(36)"`
	DefaultAliasPublicDomainID *string      `json:"defaultAliasPublicDomainId,omitempty" gorm:"type:varchar(36)"`
	AliasScheme                AliasScheme  `json:"aliasScheme" gorm:"default:1"`
	SuffixStyle                SuffixStyle  `json:"suffixStyle" gorm:"default:0"`
	SenderFormat               SenderFormat `json:"senderFormat" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InTrial 判断用户是否处于试用期
func (u *User) InTrial(now time.Time) bool {
	return u.TrialEnd != nil && u.TrialEnd.After(now)
}

// Subscription 付费订阅记录。
//
// 原系统有 Paddle/Apple/Coinbase 三种后端，各自的宽限期规则不一致，
// 这里统一为"EndsAt 之前有效"，宽限期由写入 EndsAt 的一方折算。
type Subscription struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"userId" gorm:"uniqueIndex;type:varchar(36);not null"`
	Kind      string    `json:"kind" gorm:"type:varchar(20)"` // paddle | apple | manual
	EndsAt    time.Time `json:"endsAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsActive 判断订阅在指定时间点是否有效
func (s *Subscription) IsActive(now time.Time) bool {
	return s.EndsAt.After(now)
}
