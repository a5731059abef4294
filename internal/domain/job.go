package domain

import "time"

// 核心入队的任务名
const (
	// JobForwardEmail 转发一封入站邮件（由外部投递进程消费）
	JobForwardEmail = "forward_email"
	// JobSendWelcome 新用户欢迎邮件
	JobSendWelcome = "send_welcome"
	// JobDeleteAccount 账号删除
	JobDeleteAccount = "delete_account"
)

// Job 一次性后台任务。核心只负责写入，消费发生在外部任务进程。
type Job struct {
	ID      string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name    string            `json:"name" gorm:"type:varchar(128);index;not null"`
	Payload map[string]string `json:"payload" gorm:"serializer:json;type:json"`

	// 是否已被任务进程认领
	Taken bool      `json:"taken" gorm:"default:false;index"`
	RunAt time.Time `json:"runAt" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
}
