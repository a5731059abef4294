package domain

import "time"

// DeletedAlias 全局回收站：记录所有被释放的别名地址，保证不被复用。
//
// 只允许别名删除路径写入；任何直接创建都会被存储层以
// ErrIllegalOperation 拒绝。
type DeletedAlias struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// DomainDeletedAlias 自定义域名范围内的回收站。
// 域名拥有者删除的本地部分只在该域名内不可复用，不影响其他域名。
type DomainDeletedAlias struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DomainID  string    `json:"domainId" gorm:"type:varchar(36);not null;uniqueIndex:uq_domain_trash"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:uq_domain_trash"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);not null"`
	CreatedAt time.Time `json:"createdAt"`
}
