package service

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// 反向别名地址的保留前缀。
// 入站解析时凡是以它开头的收件地址都按回复流程处理。
const replyEmailPrefix = "ra+"

// ContactService 维护别名与外部发件人之间的反向别名映射。
type ContactService struct {
	store storage.Store
	cfg   config.AliasConfig
	log   *zap.Logger
}

// NewContactService 创建联系人业务服务。
func NewContactService(store storage.Store, cfg config.AliasConfig, log *zap.Logger) *ContactService {
	return &ContactService{store: store, cfg: cfg, log: log}
}

// GetOrCreate 取出或创建 (别名, 发件人) 对应的联系人。
// 并发创建同一对时存储层唯一约束保证只有一行落库，
// 冲突的一方重新读取已有记录，两边拿到同一个 reply_email。
func (s *ContactService) GetOrCreate(alias *domain.Alias, senderAddress, fromHeader, mailFrom string) (*domain.Contact, error) {
	normalized := domain.SanitizeEmail(senderAddress)

	if contact, err := s.store.GetContactByAliasAndWebsite(alias.ID, normalized); err == nil {
		return contact, nil
	} else if !errors.Is(err, domain.ErrContactNotFound) {
		return nil, err
	}

	displayName, _ := domain.ParseFullAddress(fromHeader)
	for attempt := 0; attempt < insertRetryLimit; attempt++ {
		contact := &domain.Contact{
			ID:           uuid.NewString(),
			UserID:       alias.UserID,
			AliasID:      alias.ID,
			WebsiteEmail: normalized,
			Name:         displayName,
			FromHeader:   fromHeader,
			MailFrom:     mailFrom,
			ReplyEmail:   s.newReplyEmail(),
		}
		if !domain.IsValidEmail(normalized) {
			// 发件人地址无法解析：保留原文以便排查，但标记为
			// 不可回复，投递本身照常进行
			contact.InvalidEmail = true
		}

		err := s.store.CreateContact(contact)
		if errors.Is(err, domain.ErrContactExists) {
			existing, lookupErr := s.store.GetContactByAliasAndWebsite(alias.ID, normalized)
			if lookupErr == nil {
				// 并发的另一个写入者赢了，读它那一行
				return existing, nil
			}
			if errors.Is(lookupErr, domain.ErrContactNotFound) {
				// (别名, 发件人) 没有落库，冲突来自 reply_email
				// 撞号，换一个令牌重试
				continue
			}
			return nil, lookupErr
		}
		if err != nil {
			return nil, err
		}

		s.log.Debug("contact created",
			zap.String("alias", alias.Email),
			zap.String("website_email", normalized),
		)
		return contact, nil
	}
	return nil, domain.ErrGenerationExhausted
}

// newReplyEmail 生成一个全局唯一的反向别名地址
func (s *ContactService) newReplyEmail() string {
	return replyEmailPrefix + secureToken(12) + "@" + s.cfg.ReplyDomain
}

// RenderForReply 渲染用户回复时看到的对方地址。
// 纯格式化，不触存储。
func (s *ContactService) RenderForReply(contact *domain.Contact, user *domain.User) string {
	return contact.WebsiteSendTo(user.SenderFormat)
}

// RenderForSend 渲染外发邮件中使用的发件人地址。
func (s *ContactService) RenderForSend(contact *domain.Contact, user *domain.User) string {
	return contact.NewAddr(user.SenderFormat)
}

// GetByReplyEmail 按反向别名地址取联系人，回复流程的入口。
func (s *ContactService) GetByReplyEmail(replyEmail string) (*domain.Contact, error) {
	return s.store.GetContactByReplyEmail(domain.SanitizeEmail(replyEmail))
}

// ListContacts 分页列出别名的联系人并校验归属。
func (s *ContactService) ListContacts(userID, aliasID string, page, pageSize int) ([]domain.Contact, int64, error) {
	alias, err := s.store.GetAlias(aliasID)
	if err != nil {
		return nil, 0, err
	}
	if alias.UserID != userID {
		return nil, 0, domain.ErrNotOwner
	}
	return s.store.ListContactsByAlias(aliasID, page, pageSize)
}

// DeleteContact 删除联系人并校验归属。
// 反向别名地址不进回收站：它带保留前缀和随机令牌，
// 地址空间不可能被枚举复用。
func (s *ContactService) DeleteContact(userID, contactID string) error {
	contact, err := s.store.GetContact(contactID)
	if err != nil {
		return err
	}
	if contact.UserID != userID {
		return domain.ErrNotOwner
	}
	return s.store.DeleteContact(contactID)
}
