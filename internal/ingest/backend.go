package ingest

import (
	"errors"
	"io"
	"net/mail"
	"regexp"
	"strings"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage"
)

// maxMessageSize 单封邮件的最大读取字节数
const maxMessageSize = 10 << 20 // 10MB

// Backend 实现 go-smtp 的 Backend 接口。
//
// 【安全说明】
// 这是一个只接收邮件的 SMTP 服务器（Receiving-Only SMTP Server）。
// 特性：
// - ✅ 只接收发往本系统别名或回复地址的邮件
// - ✅ 严格验证收件人地址必须能被解析
// - ✅ 未知本地部分支持自动创建规则 / catch-all / 目录即时创建
// - ❌ 不支持对外中继（实际投递由外部任务进程消费 Job 完成）
//
// 安全机制：
// 1. Rcpt() 方法严格验证收件人地址
// 2. 只有托管域名（回复域名、系统域名、公共域名、已验证的
//    自定义域名）才能接收邮件
// 3. 外部地址一律返回 550 错误拒绝
type Backend struct {
	store    storage.Store
	contacts *service.ContactService
	activity *service.ActivityService
	cfg      config.AliasConfig
	limiter  *ConnectionLimiter
	log      *zap.Logger
}

// NewBackend 创建 SMTP Backend。limiter 为 nil 时不限流。
func NewBackend(
	store storage.Store,
	contacts *service.ContactService,
	activity *service.ActivityService,
	cfg config.AliasConfig,
	limiter *ConnectionLimiter,
	log *zap.Logger,
) *Backend {
	return &Backend{
		store:    store,
		contacts: contacts,
		activity: activity,
		cfg:      cfg,
		limiter:  limiter,
		log:      log,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if b.limiter != nil && !b.limiter.Acquire() {
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many connections, try again later",
		}
	}
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []recipient
}

// recipient 一个已解析的收件人。alias 与 contact 恰好一个非空：
// alias 表示入站转发路径，contact 表示回复路径。
type recipient struct {
	address string
	alias   *domain.Alias
	contact *domain.Contact
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = domain.SanitizeEmail(normalizeAddress(from))
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 【安全关键】此方法是防止邮件中继的核心。
// 解析顺序：
// 1. 回复域名上的 "ra+" 地址 → 反向别名（回复路径）
// 2. 已存在的别名
// 3. 已验证自定义域名上的未知本地部分 → 自动创建规则 → catch-all
// 4. 公共/系统域名上的 "目录名+任意后缀" → 目录即时创建
// 5. 其余一律 550 拒绝
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := domain.SanitizeEmail(normalizeAddress(to))

	localPart, domainPart, ok := domain.SplitAddress(addr)
	if !ok {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	// 回复路径：反向别名只存在于回复域名上
	if strings.EqualFold(domainPart, s.backend.cfg.ReplyDomain) && strings.HasPrefix(localPart, "ra+") {
		contact, err := s.backend.contacts.GetByReplyEmail(addr)
		if err != nil {
			return rcptNotFound()
		}
		s.recipients = append(s.recipients, recipient{address: addr, contact: contact})
		return nil
	}

	// 已存在的别名（停用别名也接收，Data 阶段记拦截）
	if alias, err := s.backend.store.GetAliasByEmail(addr); err == nil {
		s.recipients = append(s.recipients, recipient{address: addr, alias: alias})
		return nil
	}

	// 未知本地部分：已验证的自定义域名走自动创建
	if cd, err := s.backend.store.GetCustomDomainByName(domainPart); err == nil {
		if !cd.Verified {
			return relayDenied()
		}
		alias, smtpErr := s.autoCreateOnDomain(cd, addr, localPart)
		if smtpErr != nil {
			return smtpErr
		}
		s.recipients = append(s.recipients, recipient{address: addr, alias: alias})
		return nil
	}

	// 公共/系统域名上的目录即时创建
	if s.managedPublicDomain(domainPart) {
		if alias, smtpErr := s.autoCreateFromDirectory(addr, localPart); smtpErr == nil && alias != nil {
			s.recipients = append(s.recipients, recipient{address: addr, alias: alias})
			return nil
		} else if smtpErr != nil {
			return smtpErr
		}
		return rcptNotFound()
	}

	// 域名不在托管列表中，拒绝接收
	return relayDenied()
}

// autoCreateOnDomain 处理发往已验证自定义域名上未知本地部分的邮件：
// 先按顺序匹配自动创建规则，再看 catch-all 开关。
func (s *session) autoCreateOnDomain(cd *domain.CustomDomain, addr, localPart string) (*domain.Alias, *gosmtp.SMTPError) {
	rules, err := s.backend.store.ListAutoCreateRules(cd.ID)
	if err != nil {
		return nil, tempFailure()
	}

	for i := range rules {
		re, err := regexp.Compile(rules[i].Regex)
		if err != nil {
			// 入库时已校验过，坏规则跳过而不是拒信
			s.backend.log.Warn("skipping invalid auto-create rule",
				zap.String("rule_id", rules[i].ID), zap.Error(err))
			continue
		}
		if !re.MatchString(localPart) {
			continue
		}
		mailboxes, err := s.backend.store.ListRuleMailboxes(rules[i].ID)
		if err != nil {
			return nil, tempFailure()
		}
		return s.createAlias(cd.UserID, addr, &cd.ID, nil, mailboxes)
	}

	if !cd.CatchAll {
		return nil, rcptNotFound()
	}
	mailboxes, err := s.backend.store.ListDomainMailboxes(cd.ID)
	if err != nil {
		return nil, tempFailure()
	}
	return s.createAlias(cd.UserID, addr, &cd.ID, nil, mailboxes)
}

// autoCreateFromDirectory 处理 "目录名+任意后缀@公共域名"。
// 支持 +、#、/ 三种分隔符；目录停用时不再即时创建。
// 返回 (nil, nil) 表示本地部分不是目录地址。
func (s *session) autoCreateFromDirectory(addr, localPart string) (*domain.Alias, *gosmtp.SMTPError) {
	sep := strings.IndexAny(localPart, "+#/")
	if sep <= 0 {
		return nil, nil
	}
	dirName := localPart[:sep]

	dir, err := s.backend.store.GetDirectoryByName(dirName)
	if err != nil {
		return nil, nil
	}
	if dir.Disabled {
		return nil, rcptNotFound()
	}

	mailboxes, err := s.backend.store.ListDirectoryMailboxes(dir.ID)
	if err != nil {
		return nil, tempFailure()
	}
	return s.createAlias(dir.UserID, addr, nil, &dir.ID, mailboxes)
}

// createAlias 即时创建一个自动别名。配额和回收站检查在存储层
// 的事务里完成，超额或地址在回收站时拒信。
func (s *session) createAlias(userID, addr string, customDomainID, directoryID *string, mailboxes []domain.Mailbox) (*domain.Alias, *gosmtp.SMTPError) {
	user, err := s.backend.store.GetUser(userID)
	if err != nil {
		return nil, tempFailure()
	}

	primary := ""
	if len(mailboxes) > 0 {
		primary = mailboxes[0].ID
	} else if user.DefaultMailboxID != nil {
		primary = *user.DefaultMailboxID
	}
	if primary == "" {
		return nil, rcptNotFound()
	}

	alias := &domain.Alias{
		ID:                uuid.NewString(),
		UserID:            userID,
		Email:             addr,
		Enabled:           true,
		MailboxID:         primary,
		CustomDomainID:    customDomainID,
		DirectoryID:       directoryID,
		AutomaticCreation: true,
	}
	if err := s.backend.store.CreateAlias(alias, s.backend.activity.AliasLimit(user)); err != nil {
		switch {
		case errors.Is(err, domain.ErrAddressExists):
			// 并发会话抢先创建了同名别名，直接复用
			if existing, err := s.backend.store.GetAliasByEmail(addr); err == nil {
				return existing, nil
			}
			return nil, tempFailure()
		case errors.Is(err, domain.ErrQuotaExceeded), errors.Is(err, domain.ErrAddressInTrash):
			return nil, rcptNotFound()
		default:
			return nil, tempFailure()
		}
	}

	if len(mailboxes) > 1 {
		for _, mb := range mailboxes[1:] {
			if err := s.backend.store.AddAliasMailbox(alias.ID, mb.ID); err != nil {
				s.backend.log.Warn("attach mailbox to auto-created alias failed",
					zap.String("alias_id", alias.ID), zap.String("mailbox_id", mb.ID), zap.Error(err))
			}
		}
	}

	s.backend.log.Info("alias auto-created",
		zap.String("alias_id", alias.ID),
		zap.String("email", addr),
		zap.String("user_id", userID),
	)
	return alias, nil
}

// managedPublicDomain 判断域名是否是系统域名或公共域名。
func (s *session) managedPublicDomain(domainPart string) bool {
	for _, d := range s.backend.cfg.Domains {
		if strings.EqualFold(d, domainPart) {
			return true
		}
	}
	if _, err := s.backend.store.GetPublicDomainByName(domainPart); err == nil {
		return true
	}
	return false
}

// Data 处理邮件内容。
//
// 核心只做记账：为每个收件人建立/复用联系人、写入流转记录，
// 并入队 forward_email 任务。实际投递由外部进程消费任务完成。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return err
	}

	fromHeader := s.fromAddress
	if msg, err := mail.ReadMessage(strings.NewReader(string(rawBytes))); err == nil {
		if h := msg.Header.Get("From"); h != "" {
			fromHeader = h
		}
	}

	for _, rcpt := range s.recipients {
		if rcpt.contact != nil {
			if err := s.handleReply(rcpt); err != nil {
				return err
			}
			continue
		}
		if err := s.handleForward(rcpt, fromHeader); err != nil {
			return err
		}
	}
	return nil
}

// handleForward 入站转发路径：外部发信人 → 别名 → 邮箱。
func (s *session) handleForward(rcpt recipient, fromHeader string) error {
	alias := rcpt.alias

	contact, err := s.backend.contacts.GetOrCreate(alias, s.fromAddress, fromHeader, s.fromAddress)
	if err != nil {
		return err
	}

	entry := &domain.EmailLog{
		UserID:    alias.UserID,
		ContactID: contact.ID,
		AliasID:   &alias.ID,
		MailboxID: &alias.MailboxID,
		Blocked:   !alias.Enabled,
	}
	if err := s.backend.activity.Record(entry); err != nil {
		return err
	}

	if !alias.Enabled {
		s.backend.log.Info("email blocked, alias disabled",
			zap.String("alias_id", alias.ID), zap.String("from", s.fromAddress))
		return nil
	}

	return s.backend.store.EnqueueJob(&domain.Job{
		ID:   uuid.NewString(),
		Name: domain.JobForwardEmail,
		Payload: map[string]string{
			"direction":  "forward",
			"alias_id":   alias.ID,
			"contact_id": contact.ID,
			"mailbox_id": alias.MailboxID,
		},
	})
}

// handleReply 回复路径：邮箱拥有者 → 反向别名 → 外部联系人。
// 只有别名绑定的邮箱才允许通过反向别名发信。
func (s *session) handleReply(rcpt recipient) error {
	contact := rcpt.contact

	alias, err := s.backend.store.GetAlias(contact.AliasID)
	if err != nil {
		return rcptNotFound()
	}

	if !s.senderOwnsAlias(alias) {
		s.backend.log.Warn("reply from unauthorized sender",
			zap.String("alias_id", alias.ID),
			zap.String("from", s.fromAddress),
		)
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "sender is not allowed to use this reverse alias",
		}
	}

	entry := &domain.EmailLog{
		UserID:    alias.UserID,
		ContactID: contact.ID,
		AliasID:   &alias.ID,
		IsReply:   true,
	}
	if err := s.backend.activity.Record(entry); err != nil {
		return err
	}

	return s.backend.store.EnqueueJob(&domain.Job{
		ID:   uuid.NewString(),
		Name: domain.JobForwardEmail,
		Payload: map[string]string{
			"direction":  "reply",
			"alias_id":   alias.ID,
			"contact_id": contact.ID,
			"to":         contact.WebsiteEmail,
		},
	})
}

// senderOwnsAlias 检查 MAIL FROM 是否是别名的主邮箱或附加邮箱。
func (s *session) senderOwnsAlias(alias *domain.Alias) bool {
	if mb, err := s.backend.store.GetMailbox(alias.MailboxID); err == nil {
		if strings.EqualFold(mb.Email, s.fromAddress) {
			return true
		}
	}
	extras, err := s.backend.store.ListAliasMailboxes(alias.ID)
	if err != nil {
		return false
	}
	for i := range extras {
		if strings.EqualFold(extras[i].Email, s.fromAddress) {
			return true
		}
	}
	return false
}

// AuthPlain 处理 PLAIN 认证（此处允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	if s.backend.limiter != nil {
		s.backend.limiter.Release()
	}
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}

func rcptNotFound() *gosmtp.SMTPError {
	return &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
		Message:      "recipient not found",
	}
}

func relayDenied() *gosmtp.SMTPError {
	return &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
		Message:      "relay access denied - domain not managed by this server",
	}
}

func tempFailure() *gosmtp.SMTPError {
	return &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
		Message:      "temporary failure, try again later",
	}
}
