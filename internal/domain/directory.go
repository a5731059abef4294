package domain

import "time"

// Directory 目录：在公共域名上以 "目录名+任意字符" 的形式即时创建别名。
type Directory struct {
	ID     string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"userId" gorm:"type:varchar(36);index;not null"`
	Name   string `json:"name" gorm:"uniqueIndex;type:varchar(128);not null"`

	// 停用后不再即时创建别名，已有别名不受影响
	Disabled bool `json:"disabled" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DirectoryMailbox 目录的邮箱集合，为空时使用用户默认邮箱
type DirectoryMailbox struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DirectoryID string    `json:"directoryId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_directory_mailbox"`
	MailboxID   string    `json:"mailboxId" gorm:"type:varchar(36);not null;uniqueIndex:uq_directory_mailbox"`
	CreatedAt   time.Time `json:"createdAt"`
}
