package service

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

var domainPattern = regexp.MustCompile(`^[0-9a-z-]+(\.[0-9a-z-]+)+$`)

// CustomDomainService 管理用户自带域名及其 catch-all /
// 自动创建规则。DNS 层面的 MX/TXT 实际探测由外部协作方完成，
// 这里只维护探测结果。
type CustomDomainService struct {
	store storage.Store
	log   *zap.Logger
}

// NewCustomDomainService 创建自定义域名业务服务。
func NewCustomDomainService(store storage.Store, log *zap.Logger) *CustomDomainService {
	return &CustomDomainService{store: store, log: log}
}

// Create 登记一个自定义域名并签发所有权 TXT 令牌。
func (s *CustomDomainService) Create(userID, domainName string) (*domain.CustomDomain, error) {
	name := strings.ToLower(strings.TrimSpace(domainName))
	if !domainPattern.MatchString(name) {
		return nil, domain.ErrInvalidPrefix
	}

	cd := &domain.CustomDomain{
		ID:                uuid.NewString(),
		UserID:            userID,
		Domain:            name,
		OwnershipTxtToken: secureToken(16),
	}
	if err := s.store.CreateCustomDomain(cd); err != nil {
		return nil, err
	}

	s.log.Info("custom domain registered",
		zap.String("user_id", userID),
		zap.String("domain", name),
	)
	return cd, nil
}

// Get 获取域名并校验归属。
func (s *CustomDomainService) Get(userID, domainID string) (*domain.CustomDomain, error) {
	cd, err := s.store.GetCustomDomain(domainID)
	if err != nil {
		return nil, err
	}
	if cd.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return cd, nil
}

// List 列出用户的自定义域名。
func (s *CustomDomainService) List(userID string) ([]domain.CustomDomain, error) {
	return s.store.ListCustomDomainsByUser(userID)
}

// UpdateCustomDomainInput 域名可修改的字段，nil 表示不修改。
type UpdateCustomDomainInput struct {
	Name                   *string
	CatchAll               *bool
	RandomPrefixGeneration *bool
}

// Update 修改域名的可变字段。
func (s *CustomDomainService) Update(userID, domainID string, input UpdateCustomDomainInput) (*domain.CustomDomain, error) {
	cd, err := s.Get(userID, domainID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		cd.Name = *input.Name
	}
	if input.CatchAll != nil {
		cd.CatchAll = *input.CatchAll
	}
	if input.RandomPrefixGeneration != nil {
		cd.RandomPrefixGeneration = *input.RandomPrefixGeneration
	}

	if err := s.store.UpdateCustomDomain(cd); err != nil {
		return nil, err
	}
	return cd, nil
}

// MarkVerified 写入 MX 探测结果。
func (s *CustomDomainService) MarkVerified(userID, domainID string, verified bool) (*domain.CustomDomain, error) {
	cd, err := s.Get(userID, domainID)
	if err != nil {
		return nil, err
	}
	cd.Verified = verified
	if err := s.store.UpdateCustomDomain(cd); err != nil {
		return nil, err
	}
	return cd, nil
}

// MarkOwnershipVerified 写入所有权 TXT 探测结果。
func (s *CustomDomainService) MarkOwnershipVerified(userID, domainID string, verified bool) (*domain.CustomDomain, error) {
	cd, err := s.Get(userID, domainID)
	if err != nil {
		return nil, err
	}
	cd.OwnershipVerified = verified
	if err := s.store.UpdateCustomDomain(cd); err != nil {
		return nil, err
	}
	return cd, nil
}

// SetMailboxes 重设域名的邮箱集合，catch-all 别名落到这些邮箱。
func (s *CustomDomainService) SetMailboxes(userID, domainID string, mailboxIDs []string) error {
	cd, err := s.Get(userID, domainID)
	if err != nil {
		return err
	}

	// 自动创建的别名会继承这些邮箱，未验证的不能混进来
	for _, id := range mailboxIDs {
		mailbox, err := s.store.GetMailbox(id)
		if err != nil {
			return err
		}
		if mailbox.UserID != userID {
			return domain.ErrNotOwner
		}
		if !mailbox.Verified || mailbox.Disabled {
			return domain.ErrMailboxNotVerified
		}
	}

	current, err := s.store.ListDomainMailboxes(cd.ID)
	if err != nil {
		return err
	}
	for _, m := range current {
		if err := s.store.RemoveDomainMailbox(cd.ID, m.ID); err != nil {
			return err
		}
	}
	for _, id := range mailboxIDs {
		if err := s.store.AddDomainMailbox(cd.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// CreateRule 为域名追加一条自动创建规则。
// 正则先编译验证，坏规则不入库。
func (s *CustomDomainService) CreateRule(userID, domainID, regex string, order int, mailboxIDs []string) (*domain.AutoCreateRule, error) {
	cd, err := s.Get(userID, domainID)
	if err != nil {
		return nil, err
	}
	if _, err := regexp.Compile(regex); err != nil {
		return nil, domain.ErrInvalidPrefix
	}
	for _, id := range mailboxIDs {
		mailbox, err := s.store.GetMailbox(id)
		if err != nil {
			return nil, err
		}
		if mailbox.UserID != userID {
			return nil, domain.ErrNotOwner
		}
		if !mailbox.Verified || mailbox.Disabled {
			return nil, domain.ErrMailboxNotVerified
		}
	}

	rule := &domain.AutoCreateRule{
		ID:             uuid.NewString(),
		CustomDomainID: cd.ID,
		Regex:          regex,
		Order:          order,
	}
	if err := s.store.CreateAutoCreateRule(rule); err != nil {
		return nil, err
	}
	for _, id := range mailboxIDs {
		if err := s.store.AddRuleMailbox(rule.ID, id); err != nil {
			return nil, err
		}
	}
	return rule, nil
}

// ListRules 按顺序列出域名的自动创建规则。
func (s *CustomDomainService) ListRules(userID, domainID string) ([]domain.AutoCreateRule, error) {
	if _, err := s.Get(userID, domainID); err != nil {
		return nil, err
	}
	return s.store.ListAutoCreateRules(domainID)
}

// DeleteRule 删除自动创建规则。
func (s *CustomDomainService) DeleteRule(userID, domainID, ruleID string) error {
	if _, err := s.Get(userID, domainID); err != nil {
		return err
	}
	return s.store.DeleteAutoCreateRule(ruleID)
}

// ListTrash 列出域名回收站里被冻结的地址。
func (s *CustomDomainService) ListTrash(userID, domainID string) ([]domain.DomainDeletedAlias, error) {
	if _, err := s.Get(userID, domainID); err != nil {
		return nil, err
	}
	return s.store.ListDomainTrash(domainID)
}
