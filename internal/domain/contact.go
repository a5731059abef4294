package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Contact 表示别名与某个外部发件人之间的反向别名配置。
//
// 不变量：(AliasID, WebsiteEmail) 唯一——同一别名下同一个外部发件人
// 至多一条记录；ReplyEmail 全局唯一，带保留前缀，遵循与别名地址
// 相同的不复用纪律。
type Contact struct {
	ID      string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID  string `json:"userId" gorm:"type:varchar(36);index;not null"`
	AliasID string `json:"aliasId" gorm:"type:varchar(36);not null;uniqueIndex:uq_contact"`

	// 外部发件人的真实地址与显示名
	WebsiteEmail string `json:"websiteEmail" gorm:"type:varchar(512);not null;uniqueIndex:uq_contact"`
	Name         string `json:"name,omitempty" gorm:"type:varchar(512)"`

	// 原始 From 头（如 "AB CD <ab@cd.com>"）和信封 MAIL FROM，
	// 保留用于排查 WebsiteEmail 解析问题
	FromHeader string `json:"-" gorm:"type:text"`
	MailFrom   string `json:"-" gorm:"type:text"`

	// 用户点击"回复"时实际使用的地址，隐藏双方真实地址
	ReplyEmail string `json:"replyEmail" gorm:"uniqueIndex;type:varchar(512);not null"`

	// 经由 CC 创建的联系人
	IsCC bool `json:"isCc" gorm:"default:false"`

	PGPPublicKey   string `json:"-" gorm:"type:text"`
	PGPFingerprint string `json:"pgpFingerprint,omitempty" gorm:"type:varchar(512)"`

	// 发件人地址无法解析时为空地址联系人，不能接收回复
	InvalidEmail bool `json:"invalidEmail" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// obfuscate 按显示格式改写 @ 符号
func obfuscate(email string, format SenderFormat) string {
	switch format {
	case SenderFormatA:
		return strings.ReplaceAll(email, "@", "(a)")
	case SenderFormatFull, SenderFormatNameFull:
		return email
	default: // SenderFormatAT
		return strings.ReplaceAll(email, "@", " at ")
	}
}

// displayName 取联系人显示名：优先 Name 字段，否则从 FromHeader
// 里尽力解析；解析失败降级为空字符串，绝不报错。
func (c *Contact) displayName() string {
	name := c.Name
	if name == "" && c.FromHeader != "" {
		if addr, err := mail.ParseAddress(c.FromHeader); err == nil {
			name = addr.Name
		}
	}
	// 去掉所有双引号，避免破坏外层引号结构
	return strings.ReplaceAll(name, `"`, "")
}

// WebsiteSendTo 渲染"从别名发信给该联系人"时的收件地址。
//
// 返回形如 `"First Last | user at example.com" <ra+token@maildomain>`。
// 这里不能用 RFC 2047 编码：该字段给邮件客户端显示，不走 MTA。
// 纯函数，不访问存储。
func (c *Contact) WebsiteSendTo(format SenderFormat) string {
	email := obfuscate(c.WebsiteEmail, format)

	display := email
	if name := c.displayName(); name != "" {
		display = fmt.Sprintf("%s | %s", name, email)
	}

	return fmt.Sprintf("%q <%s>", display, c.ReplyEmail)
}

// NewAddr 渲染转发邮件时替换原发件人的 From 地址。
//
// 可能的形式：
//   - "First Last - first at example.com" <reply_email>
//   - "First Last - first(a)example.com" <reply_email>
//   - "first@example.com" <reply_email>
//
// 结果经 RFC 5322 formataddr 处理。纯函数。
func (c *Contact) NewAddr(format SenderFormat) string {
	formatted := strings.TrimSpace(obfuscate(c.WebsiteEmail, format))

	name := formatted
	if c.Name != "" && c.Name != strings.TrimSpace(c.WebsiteEmail) {
		name = fmt.Sprintf("%s - %s", c.Name, formatted)
	}

	addr := mail.Address{Name: name, Address: c.ReplyEmail}
	return strings.TrimSpace(addr.String())
}
