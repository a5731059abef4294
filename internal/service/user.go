package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// 新注册用户的试用期时长
const trialDuration = 7 * 24 * time.Hour

// UserService 管理用户账号与偏好设置。
type UserService struct {
	store storage.Store
	log   *zap.Logger
}

// NewUserService 创建用户业务服务。
func NewUserService(store storage.Store, log *zap.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Create 注册新用户：建号、把注册邮箱登记为已验证的默认邮箱、
// 开启试用期，并入队欢迎邮件任务。
func (s *UserService) Create(email, password, name string) (*domain.User, error) {
	normalized := domain.SanitizeEmail(email)
	if !domain.IsValidEmail(normalized) {
		return nil, domain.ErrInvalidPrefix
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	trialEnd := time.Now().Add(trialDuration)
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        normalized,
		Name:         name,
		PasswordHash: string(hash),
		TrialEnd:     &trialEnd,
		AliasScheme:  domain.AliasSchemeWord,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}

	mailbox := &domain.Mailbox{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Email:    normalized,
		Verified: true,
	}
	if err := s.store.CreateMailbox(mailbox); err != nil {
		return nil, err
	}
	user.DefaultMailboxID = &mailbox.ID
	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}

	if err := s.store.EnqueueJob(&domain.Job{
		ID:      uuid.NewString(),
		Name:    domain.JobSendWelcome,
		Payload: map[string]string{"user_id": user.ID},
	}); err != nil {
		// 欢迎邮件丢了不影响注册
		s.log.Warn("welcome job enqueue failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Get 获取用户。
func (s *UserService) Get(userID string) (*domain.User, error) {
	return s.store.GetUser(userID)
}

// UpdateSettingsInput 用户偏好的可修改字段，nil 表示不修改。
type UpdateSettingsInput struct {
	Name         *string
	AliasScheme  *domain.AliasScheme
	SuffixStyle  *domain.SuffixStyle
	SenderFormat *domain.SenderFormat
}

// UpdateSettings 修改用户偏好。
func (s *UserService) UpdateSettings(userID string, input UpdateSettingsInput) (*domain.User, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.AliasScheme != nil {
		if !input.AliasScheme.Valid() {
			return nil, domain.ErrInvalidPrefix
		}
		user.AliasScheme = *input.AliasScheme
	}
	if input.SuffixStyle != nil {
		user.SuffixStyle = *input.SuffixStyle
	}
	if input.SenderFormat != nil {
		if !input.SenderFormat.Valid() {
			return nil, domain.ErrInvalidPrefix
		}
		user.SenderFormat = *input.SenderFormat
	}

	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetDefaultAliasDomain 设置随机别名的默认域名。
// 自定义域名和公共域名互斥，至多一个生效；两个 ID 都为空
// 表示清除默认，回退到全局兜底域名。
func (s *UserService) SetDefaultAliasDomain(userID string, customDomainID, publicDomainID *string) (*domain.User, error) {
	if customDomainID != nil && publicDomainID != nil {
		return nil, domain.ErrIllegalOperation
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if customDomainID != nil {
		cd, err := s.store.GetCustomDomain(*customDomainID)
		if err != nil {
			return nil, err
		}
		if cd.UserID != userID {
			return nil, domain.ErrNotOwner
		}
		if !cd.Verified {
			return nil, domain.ErrDomainNotAllowed
		}
	}
	if publicDomainID != nil {
		if _, err := s.store.GetPublicDomain(*publicDomainID); err != nil {
			return nil, err
		}
	}

	user.DefaultAliasCustomDomainID = customDomainID
	user.DefaultAliasPublicDomainID = publicDomainID

	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyPassword 校验用户密码。
func (s *UserService) VerifyPassword(email, password string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(domain.SanitizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// SetSubscription 写入订阅记录（支付回调或人工开通）。
func (s *UserService) SetSubscription(userID, kind string, endsAt time.Time) error {
	if _, err := s.store.GetUser(userID); err != nil {
		return err
	}
	return s.store.SaveSubscription(&domain.Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		EndsAt: endsAt,
	})
}

// RequestAccountDeletion 入队账号删除任务，由外部任务进程执行。
func (s *UserService) RequestAccountDeletion(userID string) error {
	if _, err := s.store.GetUser(userID); err != nil {
		return err
	}
	return s.store.EnqueueJob(&domain.Job{
		ID:      uuid.NewString(),
		Name:    domain.JobDeleteAccount,
		Payload: map[string]string{"user_id": userID},
	})
}
