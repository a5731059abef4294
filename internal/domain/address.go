package domain

import (
	"net/mail"
	"strings"
)

// SanitizeEmail 规范化邮件地址：小写、去首尾空白、去内部空格和换行。
func SanitizeEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	email = strings.ReplaceAll(email, " ", "")
	email = strings.ReplaceAll(email, "\n", "")
	return email
}

// IsValidEmail 粗粒度地址校验：必须能被 RFC 5322 解析且包含 @。
// 入站解析是尽力而为，这里不做更严格的语法检查。
func IsValidEmail(email string) bool {
	if email == "" || !strings.Contains(email, "@") {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// ParseFullAddress 从 From 头解析显示名和地址。
// 形如 `AB CD <ab@cd.com>` 返回 ("AB CD", "ab@cd.com")。
// 解析失败返回空值，不报错——畸形头不能影响邮件投递。
func ParseFullAddress(header string) (name, email string) {
	if header == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return "", ""
	}
	return addr.Name, addr.Address
}

// SplitAddress 拆分地址为本地部分和域名；非法地址返回 ok=false。
func SplitAddress(email string) (localPart, domainPart string, ok bool) {
	i := strings.LastIndex(email, "@")
	if i <= 0 || i == len(email)-1 {
		return "", "", false
	}
	return email[:i], email[i+1:], true
}
