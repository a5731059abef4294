package domain

import "time"

// Alias 表示一个转发别名。
//
// 不变量：Email 在全部别名中唯一，并且与 DeletedAlias、
// DomainDeletedAlias 两张回收表互斥——地址一旦使用过就永不重新分配。
// 删除必须经由生命周期管理器（LifecycleService），不允许直接删行。
type Alias struct {
	ID     string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"userId" gorm:"type:varchar(36);index;not null"`
	Email  string `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`

	// 回复/发送时使用的显示名
	Name    string `json:"name,omitempty" gorm:"type:varchar(128)"`
	Enabled bool   `json:"enabled" gorm:"default:true"`
	Note    string `json:"note,omitempty" gorm:"type:text"`
	Pinned  bool   `json:"pinned" gorm:"default:false"`

	// 主邮箱；附加邮箱记录在 AliasMailbox 中
	MailboxID string `json:"mailboxId" gorm:"type:varchar(36);index;not null"`

	CustomDomainID *string `json:"customDomainId,omitempty" gorm:"type:varchar(36);index"`
	DirectoryID    *string `json:"directoryId,omitempty" gorm:"type:varchar(36);index"`

	// 是否由 catch-all / 自动创建规则 / 目录即时创建
	AutomaticCreation bool `json:"automaticCreation" gorm:"default:false"`

	// 邮箱启用 PGP 时，允许对单个别名关闭
	DisablePGP bool `json:"disablePgp" gorm:"default:false"`
	// 绕过退信自动停用机制
	CannotBeDisabled bool `json:"cannotBeDisabled" gorm:"default:false"`

	// 别名转移：一次性令牌与原拥有者审计字段
	TransferToken   *string `json:"-" gorm:"uniqueIndex;type:varchar(64)"`
	OriginalOwnerID *string `json:"originalOwnerId,omitempty" gorm:"type:varchar(36)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AliasMailbox 别名与附加邮箱的关联表
type AliasMailbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AliasID   string    `json:"aliasId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_alias_mailbox"`
	MailboxID string    `json:"mailboxId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_alias_mailbox"`
	CreatedAt time.Time `json:"createdAt"`
}
