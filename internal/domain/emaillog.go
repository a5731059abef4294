package domain

import "time"

// EmailLog 转发活动台账，每次转发/回复/拦截/退信追加一行。
//
// 创建后不再更新（垃圾邮件/退信分类字段在入站时一次性写入），
// 是所有派生计数的唯一事实来源。
type EmailLog struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string  `json:"userId" gorm:"type:varchar(36);index;not null"`
	ContactID string  `json:"contactId" gorm:"type:varchar(36);index;not null"`
	AliasID   *string `json:"aliasId,omitempty" gorm:"type:varchar(36);index"`

	// 转发阶段指接收方邮箱；回复阶段指发信方邮箱
	MailboxID *string `json:"mailboxId,omitempty" gorm:"type:varchar(36)"`
	// 退信发生在哪个邮箱（别名可能有多个邮箱）
	BouncedMailboxID *string `json:"bouncedMailboxId,omitempty" gorm:"type:varchar(36)"`

	IsReply     bool `json:"isReply" gorm:"default:false"`
	Blocked     bool `json:"blocked" gorm:"default:false"` // 别名被停用时拦截
	Bounced     bool `json:"bounced" gorm:"default:false"`
	AutoReplied bool `json:"autoReplied" gorm:"default:false"`

	// SpamAssassin 分类结果，入站时写入
	IsSpam     bool     `json:"isSpam" gorm:"default:false"`
	SpamScore  *float64 `json:"spamScore,omitempty"`
	SpamStatus string   `json:"spamStatus,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
}

// Action 返回这条记录的动作名：forward|reply|block|bounced
func (l *EmailLog) Action() string {
	switch {
	case l.IsReply:
		return "reply"
	case l.Bounced:
		return "bounced"
	case l.Blocked:
		return "block"
	default:
		return "forward"
	}
}

// ActivityStats 按动作聚合的活动计数，从 EmailLog 即时统计得出
type ActivityStats struct {
	Forward int64 `json:"forward"`
	Reply   int64 `json:"reply"`
	Block   int64 `json:"block"`
	Bounce  int64 `json:"bounce"`
}
