package service

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// MailboxService 管理用户的真实收件地址。
// 删除走 LifecycleService，那边负责别名级联。
type MailboxService struct {
	store storage.Store
	log   *zap.Logger
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(store storage.Store, log *zap.Logger) *MailboxService {
	return &MailboxService{store: store, log: log}
}

// Create 为用户登记一个新的收件邮箱，初始为未验证状态。
// 地址不能是平台上的别名，否则会形成转发环路。
func (s *MailboxService) Create(userID, email string) (*domain.Mailbox, error) {
	normalized := domain.SanitizeEmail(email)
	if !domain.IsValidEmail(normalized) {
		return nil, domain.ErrInvalidPrefix
	}

	if _, err := s.store.GetAliasByEmail(normalized); err == nil {
		return nil, domain.ErrAddressExists
	} else if !errors.Is(err, domain.ErrAliasNotFound) {
		return nil, err
	}

	mailbox := &domain.Mailbox{
		ID:     uuid.NewString(),
		UserID: userID,
		Email:  normalized,
	}
	if err := s.store.CreateMailbox(mailbox); err != nil {
		return nil, err
	}

	s.log.Info("mailbox created",
		zap.String("user_id", userID),
		zap.String("mailbox", normalized),
	)
	return mailbox, nil
}

// Verify 把邮箱标记为已验证。
// 验证邮件的发送与令牌校验由外部协作方完成。
func (s *MailboxService) Verify(userID, mailboxID string) (*domain.Mailbox, error) {
	mailbox, err := s.get(userID, mailboxID)
	if err != nil {
		return nil, err
	}
	mailbox.Verified = true
	if err := s.store.UpdateMailbox(mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

// List 列出用户的全部邮箱。
func (s *MailboxService) List(userID string) ([]domain.Mailbox, error) {
	return s.store.ListMailboxesByUser(userID)
}

// UpdateMailboxInput 邮箱可修改的字段，nil 表示不修改。
type UpdateMailboxInput struct {
	Disabled     *bool
	PGPPublicKey *string
	DisablePGP   *bool
}

// Update 修改邮箱的可变字段。
// 写入 PGP 公钥时指纹由调用方（密钥解析协作方）先行计算。
func (s *MailboxService) Update(userID, mailboxID string, input UpdateMailboxInput) (*domain.Mailbox, error) {
	mailbox, err := s.get(userID, mailboxID)
	if err != nil {
		return nil, err
	}

	if input.Disabled != nil {
		mailbox.Disabled = *input.Disabled
	}
	if input.PGPPublicKey != nil {
		mailbox.PGPPublicKey = *input.PGPPublicKey
		if *input.PGPPublicKey == "" {
			mailbox.PGPFingerprint = ""
		}
	}
	if input.DisablePGP != nil {
		mailbox.DisablePGP = *input.DisablePGP
	}

	if err := s.store.UpdateMailbox(mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

// SetDefault 把邮箱设为用户的默认邮箱，必须是已验证的。
func (s *MailboxService) SetDefault(userID, mailboxID string) error {
	mailbox, err := s.get(userID, mailboxID)
	if err != nil {
		return err
	}
	if !mailbox.Verified {
		return domain.ErrIllegalOperation
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return err
	}
	user.DefaultMailboxID = &mailbox.ID
	return s.store.UpdateUser(user)
}

func (s *MailboxService) get(userID, mailboxID string) (*domain.Mailbox, error) {
	mailbox, err := s.store.GetMailbox(mailboxID)
	if err != nil {
		return nil, err
	}
	if mailbox.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return mailbox, nil
}
