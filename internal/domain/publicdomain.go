package domain

import "time"

// PublicDomain 平台公共域名，所有用户可用；
// PremiumOnly 的域名只对付费用户开放。
type PublicDomain struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Domain      string    `json:"domain" gorm:"uniqueIndex;type:varchar(255);not null"`
	PremiumOnly bool      `json:"premiumOnly" gorm:"default:false"`
	CreatedAt   time.Time `json:"createdAt"`
}
