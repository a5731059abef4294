package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// ActivityService 负责流转台账的追加与聚合，以及配额判定。
// 计数永远从 EmailLog 即时算出，没有需要维护的缓存计数器。
type ActivityService struct {
	store          storage.Store
	maxFreeAliases int
	log            *zap.Logger
}

// NewActivityService 创建活动统计服务。
func NewActivityService(store storage.Store, maxFreeAliases int, log *zap.Logger) *ActivityService {
	return &ActivityService{
		store:          store,
		maxFreeAliases: maxFreeAliases,
		log:            log,
	}
}

// Record 追加一条流转记录。ID 和时间缺省时自动补齐。
func (s *ActivityService) Record(entry *domain.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.store.CreateEmailLog(entry); err != nil {
		return err
	}
	s.log.Debug("email activity recorded",
		zap.String("user_id", entry.UserID),
		zap.String("action", entry.Action()),
	)
	return nil
}

// GetUserStats 返回用户按动作聚合的活动计数。
func (s *ActivityService) GetUserStats(userID string) (*domain.ActivityStats, error) {
	return s.store.GetUserStats(userID)
}

// GetAliasStats 返回单个别名的活动计数。
func (s *ActivityService) GetAliasStats(aliasID string) (*domain.ActivityStats, error) {
	return s.store.GetAliasStats(aliasID)
}

// ListRecent 返回用户最近的流转记录。
func (s *ActivityService) ListRecent(userID string, limit int) ([]domain.EmailLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListEmailLogsByUser(userID, limit)
}

// Entitled 判断用户是否持有付费权益（终身、试用期内或订阅有效）。
func (s *ActivityService) Entitled(user *domain.User) bool {
	now := time.Now()
	if user.Lifetime || user.InTrial(now) {
		return true
	}
	sub, err := s.store.GetSubscription(user.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("subscription lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		return false
	}
	return sub.IsActive(now)
}

// AliasLimit 返回创建别名时传给存储层的配额上限。
// 付费用户不限额（-1），免费用户受固定上限约束。
func (s *ActivityService) AliasLimit(user *domain.User) int {
	if s.Entitled(user) {
		return -1
	}
	return s.maxFreeAliases
}

// CanCreateNewAlias 判断用户当前能否再创建一个别名。
// 这只是给前端的提前反馈；最终裁决发生在存储层的创建事务里。
func (s *ActivityService) CanCreateNewAlias(user *domain.User) (bool, error) {
	if s.Entitled(user) {
		return true, nil
	}
	count, err := s.store.CountAliasesByUser(user.ID)
	if err != nil {
		return false, err
	}
	return count < int64(s.maxFreeAliases), nil
}
