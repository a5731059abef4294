package service

import (
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// 目录名出现在地址里（name+anything@domain），约束与前缀一致
var directoryNamePattern = regexp.MustCompile(`^[0-9a-z-_]+$`)

// 保留目录名，避免与系统投递地址冲突
var reservedDirectoryNames = map[string]bool{
	"abuse":      true,
	"admin":      true,
	"postmaster": true,
	"noreply":    true,
	"no-reply":   true,
	"support":    true,
}

// DirectoryService 管理目录。目录名全局唯一，入站解析时
// "目录名+任意字符@公共域名" 会即时创建别名。
type DirectoryService struct {
	store storage.Store
	log   *zap.Logger
}

// NewDirectoryService 创建目录业务服务。
func NewDirectoryService(store storage.Store, log *zap.Logger) *DirectoryService {
	return &DirectoryService{store: store, log: log}
}

// Create 创建目录。
func (s *DirectoryService) Create(userID, name string) (*domain.Directory, error) {
	if !directoryNamePattern.MatchString(name) || reservedDirectoryNames[name] {
		return nil, domain.ErrInvalidPrefix
	}

	dir := &domain.Directory{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
	}
	if err := s.store.CreateDirectory(dir); err != nil {
		return nil, err
	}

	s.log.Info("directory created",
		zap.String("user_id", userID),
		zap.String("directory", name),
	)
	return dir, nil
}

// Get 获取目录并校验归属。
func (s *DirectoryService) Get(userID, directoryID string) (*domain.Directory, error) {
	dir, err := s.store.GetDirectory(directoryID)
	if err != nil {
		return nil, err
	}
	if dir.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return dir, nil
}

// List 列出用户的目录。
func (s *DirectoryService) List(userID string) ([]domain.Directory, error) {
	return s.store.ListDirectoriesByUser(userID)
}

// SetDisabled 启停目录的即时创建能力，已有别名不受影响。
func (s *DirectoryService) SetDisabled(userID, directoryID string, disabled bool) (*domain.Directory, error) {
	dir, err := s.Get(userID, directoryID)
	if err != nil {
		return nil, err
	}
	dir.Disabled = disabled
	if err := s.store.UpdateDirectory(dir); err != nil {
		return nil, err
	}
	return dir, nil
}

// SetMailboxes 重设目录的邮箱集合。
func (s *DirectoryService) SetMailboxes(userID, directoryID string, mailboxIDs []string) error {
	dir, err := s.Get(userID, directoryID)
	if err != nil {
		return err
	}

	// 目录下即时创建的别名会继承这些邮箱，未验证的不能混进来
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

	current, err := s.store.ListDirectoryMailboxes(dir.ID)
	if err != nil {
		return err
	}
	for _, m := range current {
		if err := s.store.RemoveDirectoryMailbox(dir.ID, m.ID); err != nil {
			return err
		}
	}
	for _, id := range mailboxIDs {
		if err := s.store.AddDirectoryMailbox(dir.ID, id); err != nil {
			return err
		}
	}
	return nil
}
