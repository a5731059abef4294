package domain

import "time"

// Mailbox 表示真实收件地址的业务实体。
// 一个别名至少要有一个已验证的邮箱，否则无法接收转发邮件。
type Mailbox struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `json:"userId" gorm:"type:varchar(36);index;not null;uniqueIndex:uq_mailbox_user"`
	Email          string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:uq_mailbox_user"`
	Verified       bool      `json:"verified" gorm:"default:false"`
	Disabled       bool      `json:"disabled" gorm:"default:false"`
	PGPPublicKey   string    `json:"-" gorm:"type:text"`
	PGPFingerprint string    `json:"pgpFingerprint,omitempty" gorm:"type:varchar(512)"`
	DisablePGP     bool      `json:"disablePgp" gorm:"default:false"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PGPEnabled 判断邮箱是否启用了 PGP 加密
func (m *Mailbox) PGPEnabled() bool {
	return m.PGPFingerprint != "" && !m.DisablePGP
}
