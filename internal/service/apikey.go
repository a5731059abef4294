package service

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// ApiKeyService 管理 REST API 的访问凭证。
type ApiKeyService struct {
	store storage.Store
	log   *zap.Logger
}

// NewApiKeyService 创建 API Key 业务服务。
func NewApiKeyService(store storage.Store, log *zap.Logger) *ApiKeyService {
	return &ApiKeyService{store: store, log: log}
}

// Create 签发一个新的 API Key。密钥值只在签发时返回一次。
func (s *ApiKeyService) Create(userID, name string) (*domain.ApiKey, error) {
	key := &domain.ApiKey{
		ID:     uuid.NewString(),
		UserID: userID,
		Code:   secureToken(32),
		Name:   name,
	}
	if err := s.store.CreateApiKey(key); err != nil {
		return nil, err
	}
	s.log.Info("api key issued",
		zap.String("user_id", userID),
		zap.String("key_name", name),
	)
	return key, nil
}

// Authenticate 校验密钥并返回其属主，同时记录一次使用。
func (s *ApiKeyService) Authenticate(code string) (*domain.User, error) {
	key, err := s.store.GetApiKeyByCode(code)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(key.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchApiKey(key.ID); err != nil {
		// 使用计数失败不阻断请求
		s.log.Warn("api key touch failed", zap.String("key_id", key.ID), zap.Error(err))
	}
	return user, nil
}

// List 列出用户的全部 API Key。
func (s *ApiKeyService) List(userID string) ([]domain.ApiKey, error) {
	return s.store.ListApiKeysByUser(userID)
}

// Delete 吊销一个 API Key。
func (s *ApiKeyService) Delete(userID, keyID string) error {
	keys, err := s.store.ListApiKeysByUser(userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.ID == keyID {
			return s.store.DeleteApiKey(keyID)
		}
	}
	return domain.ErrApiKeyNotFound
}
