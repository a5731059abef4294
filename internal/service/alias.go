package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// 存储层唯一约束冲突后的重新生成次数。
// 生成阶段已经做过可用性检查，这里只兜并发竞争的小概率窗口。
const insertRetryLimit = 10

// AliasService 封装别名的生成与日常管理。
// 删除和级联迁移在 LifecycleService，这里只负责创建和修改。
type AliasService struct {
	store    storage.Store
	cfg      config.AliasConfig
	tokens   TokenStore
	activity *ActivityService
	log      *zap.Logger

	mu     sync.Mutex
	random *rand.Rand
}

// NewAliasService 创建别名业务服务。
func NewAliasService(store storage.Store, cfg config.AliasConfig, tokens TokenStore, activity *ActivityService, log *zap.Logger) *AliasService {
	return &AliasService{
		store:    store,
		cfg:      cfg,
		tokens:   tokens,
		activity: activity,
		log:      log,
		random:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRandomAlias 创建一个随机地址的别名。
// scheme 为零值时使用用户偏好；targetDomain 为空时按默认域名
// 优先级解析。配额与唯一性的最终裁决在存储层的创建事务里，
// 地址冲突时在有限次数内重新生成。
func (s *AliasService) CreateRandomAlias(userID string, scheme domain.AliasScheme, targetDomain, note string) (*domain.Alias, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if !scheme.Valid() {
		scheme = user.AliasScheme
	}
	mailboxID, err := s.defaultMailboxID(user)
	if err != nil {
		return nil, err
	}
	limit := s.activity.AliasLimit(user)

	for attempt := 0; attempt < insertRetryLimit; attempt++ {
		email, customDomainID, err := s.generateRandomAddress(user, scheme, targetDomain)
		if err != nil {
			return nil, err
		}

		alias := &domain.Alias{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			Email:          email,
			Enabled:        true,
			Note:           note,
			MailboxID:      mailboxID,
			CustomDomainID: customDomainID,
		}

		err = s.store.CreateAlias(alias, limit)
		switch {
		case err == nil:
			s.log.Info("alias created",
				zap.String("user_id", user.ID),
				zap.String("alias", alias.Email),
				zap.Bool("random", true),
			)
			return alias, nil
		case errors.Is(err, domain.ErrAddressExists), errors.Is(err, domain.ErrAddressInTrash):
			// 并发竞争抢走了地址，换一个重试
			continue
		default:
			return nil, err
		}
	}
	return nil, domain.ErrGenerationExhausted
}

// SuffixOption 自定义别名可选的一个后缀。
// Token 是一次性签名令牌，创建时回传以证明后缀未被篡改。
type SuffixOption struct {
	Suffix    string `json:"suffix"`
	Token     string `json:"token"`
	IsCustom  bool   `json:"isCustom"`
	IsPremium bool   `json:"isPremium"`
}

// SuffixOptions 列出用户创建自定义别名时可用的后缀。
// 公共域名带随机后缀防止同前缀冲突；已验证的自定义域名默认
// 不加后缀，开启 RandomPrefixGeneration 时同样带随机后缀。
func (s *AliasService) SuffixOptions(ctx context.Context, user *domain.User) ([]SuffixOption, error) {
	var options []SuffixOption

	sign := func(suffix string, customDomainID string, isCustom, isPremium bool) error {
		token := secureToken(16)
		if err := s.tokens.Put(ctx, token, suffix+"|"+customDomainID, s.cfg.SuffixTokenTTL); err != nil {
			return err
		}
		options = append(options, SuffixOption{
			Suffix:    suffix,
			Token:     token,
			IsCustom:  isCustom,
			IsPremium: isPremium,
		})
		return nil
	}

	customDomains, err := s.store.ListCustomDomainsByUser(user.ID)
	if err != nil {
		return nil, err
	}
	for _, cd := range customDomains {
		if !cd.Verified {
			continue
		}
		suffix := "@" + cd.Domain
		if cd.RandomPrefixGeneration {
			suffix = "." + s.randomSuffix(user.SuffixStyle) + suffix
		}
		if err := sign(suffix, cd.ID, true, false); err != nil {
			return nil, err
		}
	}

	entitled := s.activity.Entitled(user)
	publicDomains, err := s.store.ListPublicDomains()
	if err != nil {
		return nil, err
	}
	for _, pd := range publicDomains {
		if pd.PremiumOnly && !entitled {
			continue
		}
		suffix := "." + s.randomSuffix(user.SuffixStyle) + "@" + pd.Domain
		if err := sign(suffix, "", false, pd.PremiumOnly); err != nil {
			return nil, err
		}
	}

	// 配置里的兜底域名可能尚未登记为公共域名
	for _, d := range s.cfg.Domains {
		if _, err := s.store.GetPublicDomainByName(d); err == nil {
			continue
		}
		suffix := "." + s.randomSuffix(user.SuffixStyle) + "@" + d
		if err := sign(suffix, "", false, false); err != nil {
			return nil, err
		}
	}

	return options, nil
}

// CreateCustomAlias 用用户提供的前缀和签名后缀创建别名。
// domainToken 必须来自 SuffixOptions 且未被消费过；自定义路径
// 不做冲突重试，地址被占用或在回收站时直接把错误交给调用方。
func (s *AliasService) CreateCustomAlias(ctx context.Context, userID, prefix, domainToken string, mailboxIDs []string, note, name string) (*domain.Alias, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}

	cleaned, err := sanitizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	payload, ok, err := s.tokens.Consume(ctx, domainToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSuffixTokenInvalid
	}
	suffix, customDomainRef, found := strings.Cut(payload, "|")
	if !found {
		return nil, domain.ErrSuffixTokenInvalid
	}
	var customDomainID *string
	if customDomainRef != "" {
		customDomainID = &customDomainRef
	}

	primary, extra, err := s.resolveMailboxes(user, mailboxIDs)
	if err != nil {
		return nil, err
	}

	alias := &domain.Alias{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Email:          cleaned + suffix,
		Name:           name,
		Enabled:        true,
		Note:           note,
		MailboxID:      primary,
		CustomDomainID: customDomainID,
	}

	if err := s.store.CreateAlias(alias, s.activity.AliasLimit(user)); err != nil {
		return nil, err
	}
	for _, mailboxID := range extra {
		if err := s.store.AddAliasMailbox(alias.ID, mailboxID); err != nil {
			return nil, err
		}
	}

	s.log.Info("alias created",
		zap.String("user_id", user.ID),
		zap.String("alias", alias.Email),
		zap.Bool("random", false),
	)
	return alias, nil
}

// resolveMailboxes 校验邮箱归属并拆出主邮箱和附加邮箱。
// 未指定时使用用户默认邮箱。未验证或已停用的邮箱不能
// 作为投递目标，否则别名会收不到转发邮件。
func (s *AliasService) resolveMailboxes(user *domain.User, mailboxIDs []string) (string, []string, error) {
	if len(mailboxIDs) == 0 {
		primary, err := s.defaultMailboxID(user)
		return primary, nil, err
	}
	for _, id := range mailboxIDs {
		mailbox, err := s.store.GetMailbox(id)
		if err != nil {
			return "", nil, err
		}
		if mailbox.UserID != user.ID {
			return "", nil, domain.ErrNotOwner
		}
		if !mailbox.Verified || mailbox.Disabled {
			return "", nil, domain.ErrMailboxNotVerified
		}
	}
	return mailboxIDs[0], mailboxIDs[1:], nil
}

// defaultMailboxID 返回用户的默认邮箱 ID
func (s *AliasService) defaultMailboxID(user *domain.User) (string, error) {
	if user.DefaultMailboxID == nil {
		return "", domain.ErrMailboxNotFound
	}
	return *user.DefaultMailboxID, nil
}

// GetAlias 获取别名并校验归属。
func (s *AliasService) GetAlias(userID, aliasID string) (*domain.Alias, error) {
	alias, err := s.store.GetAlias(aliasID)
	if err != nil {
		return nil, err
	}
	if alias.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return alias, nil
}

// ListAliases 分页列出用户的别名。
func (s *AliasService) ListAliases(userID string, page, pageSize int) ([]domain.Alias, int64, error) {
	return s.store.ListAliasesByUser(userID, page, pageSize)
}

// UpdateAliasInput 别名可修改的字段，nil 表示不修改。
// 地址本身永远不可修改。
type UpdateAliasInput struct {
	Name       *string
	Note       *string
	Enabled    *bool
	Pinned     *bool
	DisablePGP *bool
}

// UpdateAlias 修改别名的可变字段。
func (s *AliasService) UpdateAlias(userID, aliasID string, input UpdateAliasInput) (*domain.Alias, error) {
	alias, err := s.GetAlias(userID, aliasID)
	if err != nil {
		return nil, err
	}

	if input.Enabled != nil && !*input.Enabled && alias.CannotBeDisabled {
		return nil, domain.ErrIllegalOperation
	}

	if input.Name != nil {
		alias.Name = *input.Name
	}
	if input.Note != nil {
		alias.Note = *input.Note
	}
	if input.Enabled != nil {
		alias.Enabled = *input.Enabled
	}
	if input.Pinned != nil {
		alias.Pinned = *input.Pinned
	}
	if input.DisablePGP != nil {
		alias.DisablePGP = *input.DisablePGP
	}

	if err := s.store.UpdateAlias(alias); err != nil {
		return nil, err
	}
	return alias, nil
}

// SetMailboxes 重设别名的邮箱集合，第一个为主邮箱。
func (s *AliasService) SetMailboxes(userID, aliasID string, mailboxIDs []string) (*domain.Alias, error) {
	if len(mailboxIDs) == 0 {
		return nil, domain.ErrMailboxNotFound
	}
	alias, err := s.GetAlias(userID, aliasID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	primary, extra, err := s.resolveMailboxes(user, mailboxIDs)
	if err != nil {
		return nil, err
	}

	current, err := s.store.ListAliasMailboxes(alias.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range current {
		if err := s.store.RemoveAliasMailbox(alias.ID, m.ID); err != nil {
			return nil, err
		}
	}

	alias.MailboxID = primary
	if err := s.store.UpdateAlias(alias); err != nil {
		return nil, err
	}
	for _, mailboxID := range extra {
		if err := s.store.AddAliasMailbox(alias.ID, mailboxID); err != nil {
			return nil, err
		}
	}
	return alias, nil
}

// AliasMailboxes 返回别名的全部邮箱，主邮箱在第一位。
func (s *AliasService) AliasMailboxes(alias *domain.Alias) ([]domain.Mailbox, error) {
	primary, err := s.store.GetMailbox(alias.MailboxID)
	if err != nil {
		return nil, err
	}
	extra, err := s.store.ListAliasMailboxes(alias.ID)
	if err != nil {
		return nil, err
	}
	out := []domain.Mailbox{*primary}
	for _, m := range extra {
		if m.ID != primary.ID {
			out = append(out, m)
		}
	}
	return out, nil
}
