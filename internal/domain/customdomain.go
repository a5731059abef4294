package domain

import "time"

// CustomDomain 用户自带域名。
// 域名验证（MX/TXT 检查）由外部协作方完成，这里只保存验证状态。
type CustomDomain struct {
	ID     string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"userId" gorm:"type:varchar(36);index;not null"`
	Domain string `json:"domain" gorm:"uniqueIndex;type:varchar(255);not null"`

	// 从该域名的别名发信时的默认显示名
	Name string `json:"name,omitempty" gorm:"type:varchar(128)"`

	// MX 已验证，可以接收邮件
	Verified bool `json:"verified" gorm:"default:false"`

	// 收到发往未知本地部分的邮件时自动创建别名
	CatchAll bool `json:"catchAll" gorm:"default:false"`
	// 自定义别名时自动生成随机前缀
	RandomPrefixGeneration bool `json:"randomPrefixGeneration" gorm:"default:false"`

	// 所有权 TXT 验证
	OwnershipVerified bool   `json:"ownershipVerified" gorm:"default:false"`
	OwnershipTxtToken string `json:"-" gorm:"type:varchar(128)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnershipTxtRecord 返回应写入 DNS 的 TXT 记录值
func (d *CustomDomain) OwnershipTxtRecord() string {
	return "sl-verification=" + d.OwnershipTxtToken
}

// DomainMailbox 自定义域名的邮箱集合。
// 为空时 catch-all 别名落到用户默认邮箱。
type DomainMailbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DomainID  string    `json:"domainId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_domain_mailbox"`
	MailboxID string    `json:"mailboxId" gorm:"type:varchar(36);not null;uniqueIndex:uq_domain_mailbox"`
	CreatedAt time.Time `json:"createdAt"`
}

// AutoCreateRule 自定义域名的别名自动创建规则。
// 收到未知本地部分时按 Order 依次用正则匹配，命中即创建别名。
type AutoCreateRule struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomDomainID string    `json:"customDomainId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_auto_create_rule_order"`
	Regex          string    `json:"regex" gorm:"type:varchar(512);not null"`
	Order          int       `json:"order" gorm:"not null;default:0;uniqueIndex:uq_auto_create_rule_order"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AutoCreateRuleMailbox 自动创建规则命中后使用的邮箱集合
type AutoCreateRuleMailbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RuleID    string    `json:"ruleId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_rule_mailbox"`
	MailboxID string    `json:"mailboxId" gorm:"type:varchar(36);not null;uniqueIndex:uq_rule_mailbox"`
	CreatedAt time.Time `json:"createdAt"`
}
