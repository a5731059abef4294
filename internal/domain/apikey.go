package domain

import "time"

// ApiKey REST API 的访问凭证（浏览器扩展、CLI 等使用）
type ApiKey struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"userId" gorm:"type:varchar(36);index;not null"`
	Code       string     `json:"-" gorm:"uniqueIndex;type:varchar(128);not null"`
	Name       string     `json:"name,omitempty" gorm:"type:varchar(128)"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	Times      int        `json:"times" gorm:"default:0"`
	CreatedAt  time.Time  `json:"createdAt"`
}
