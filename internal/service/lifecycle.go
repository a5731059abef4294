package service

import (
	"errors"

	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

// LifecycleService 是别名地址退出流通的唯一授权路径。
// 所有级联（邮箱删除、目录删除、域名删除）都在这里显式编排，
// 而不是藏在实体删除逻辑里。
type LifecycleService struct {
	store storage.Store
	log   *zap.Logger
}

// NewLifecycleService 创建生命周期管理服务。
func NewLifecycleService(store storage.Store, log *zap.Logger) *LifecycleService {
	return &LifecycleService{store: store, log: log}
}

// DeleteAlias 删除别名并把地址写入回收站。
// 自定义域名别名进入域名级回收站，其余进入全局回收站。
// 别名已不存在时静默成功，删除是幂等的。
func (s *LifecycleService) DeleteAlias(userID, aliasID string) error {
	alias, err := s.store.GetAlias(aliasID)
	if err != nil {
		if errors.Is(err, domain.ErrAliasNotFound) {
			return nil
		}
		return err
	}
	if alias.UserID != userID {
		return domain.ErrNotOwner
	}

	if err := s.store.DeleteAlias(alias); err != nil {
		return err
	}
	s.log.Info("alias trashed",
		zap.String("user_id", userID),
		zap.String("alias", alias.Email),
		zap.Bool("domain_scoped", alias.CustomDomainID != nil),
	)
	return nil
}

// DeleteMailbox 删除收件邮箱并级联处理其别名：
// 该邮箱是别名唯一邮箱时别名被回收，绝不留下无处投递的别名；
// 别名还有其他邮箱时别名存活，主邮箱指针重指向剩余邮箱之一。
// 默认邮箱不允许删除。
func (s *LifecycleService) DeleteMailbox(userID, mailboxID string) error {
	mailbox, err := s.store.GetMailbox(mailboxID)
	if err != nil {
		return err
	}
	if mailbox.UserID != userID {
		return domain.ErrNotOwner
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return err
	}
	if user.DefaultMailboxID != nil && *user.DefaultMailboxID == mailboxID {
		return domain.ErrIllegalOperation
	}

	aliases, err := s.store.ListAliasesByMailbox(mailboxID)
	if err != nil {
		return err
	}
	for i := range aliases {
		if err := s.migrateAliasOffMailbox(&aliases[i], mailboxID); err != nil {
			return err
		}
	}

	return s.store.DeleteMailbox(mailboxID)
}

// migrateAliasOffMailbox 把一个别名从将被删除的邮箱上迁走：
// 没有其他邮箱就回收别名，有就重排主邮箱并摘掉关联。
func (s *LifecycleService) migrateAliasOffMailbox(alias *domain.Alias, mailboxID string) error {
	extra, err := s.store.ListAliasMailboxes(alias.ID)
	if err != nil {
		return err
	}

	var remaining []string
	if alias.MailboxID != mailboxID {
		remaining = append(remaining, alias.MailboxID)
	}
	for _, m := range extra {
		if m.ID != mailboxID && m.ID != alias.MailboxID {
			remaining = append(remaining, m.ID)
		}
	}

	if len(remaining) == 0 {
		s.log.Info("alias trashed with sole mailbox",
			zap.String("alias", alias.Email),
			zap.String("mailbox_id", mailboxID),
		)
		return s.store.DeleteAlias(alias)
	}

	if err := s.store.RemoveAliasMailbox(alias.ID, mailboxID); err != nil {
		return err
	}
	if alias.MailboxID == mailboxID {
		alias.MailboxID = remaining[0]
		if err := s.store.RemoveAliasMailbox(alias.ID, remaining[0]); err != nil {
			return err
		}
		return s.store.UpdateAlias(alias)
	}
	return nil
}

// DeleteDirectory 删除目录并回收目录下的全部别名。
func (s *LifecycleService) DeleteDirectory(userID, directoryID string) error {
	dir, err := s.store.GetDirectory(directoryID)
	if err != nil {
		return err
	}
	if dir.UserID != userID {
		return domain.ErrNotOwner
	}

	aliases, err := s.store.ListAliasesByDirectory(directoryID)
	if err != nil {
		return err
	}
	for i := range aliases {
		if err := s.store.DeleteAlias(&aliases[i]); err != nil {
			return err
		}
	}

	s.log.Info("directory deleted",
		zap.String("user_id", userID),
		zap.String("directory", dir.Name),
		zap.Int("aliases_trashed", len(aliases)),
	)
	return s.store.DeleteDirectory(directoryID)
}

// DeleteCustomDomain 删除自定义域名及其全部别名。
// 域名级回收站随域名一起清除：域名离开平台后，其本地部分的
// 不复用纪律由新的持有者自行决定。
func (s *LifecycleService) DeleteCustomDomain(userID, domainID string) error {
	cd, err := s.store.GetCustomDomain(domainID)
	if err != nil {
		return err
	}
	if cd.UserID != userID {
		return domain.ErrNotOwner
	}

	aliases, err := s.store.ListAliasesByCustomDomain(domainID)
	if err != nil {
		return err
	}
	for i := range aliases {
		if err := s.store.DeleteAlias(&aliases[i]); err != nil {
			return err
		}
	}

	s.log.Info("custom domain deleted",
		zap.String("user_id", userID),
		zap.String("domain", cd.Domain),
		zap.Int("aliases_trashed", len(aliases)),
	)
	return s.store.DeleteCustomDomain(domainID)
}

// BeginTransfer 为别名签发一次性转移令牌。
// 重复调用会作废旧令牌。
func (s *LifecycleService) BeginTransfer(userID, aliasID string) (string, error) {
	alias, err := s.store.GetAlias(aliasID)
	if err != nil {
		return "", err
	}
	if alias.UserID != userID {
		return "", domain.ErrNotOwner
	}

	token := secureToken(24)
	alias.TransferToken = &token
	if err := s.store.UpdateAlias(alias); err != nil {
		return "", err
	}
	return token, nil
}

// CompleteTransfer 用转移令牌把别名移交给新用户。
// 地址和回收站历史原样保留；主邮箱重置为接收方的默认邮箱，
// 附加邮箱全部清空，原拥有者记入审计字段。
func (s *LifecycleService) CompleteTransfer(token, newUserID string) (*domain.Alias, error) {
	alias, err := s.store.GetAliasByTransferToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrAliasNotFound) {
			return nil, domain.ErrTransferTokenInvalid
		}
		return nil, err
	}

	newOwner, err := s.store.GetUser(newUserID)
	if err != nil {
		return nil, err
	}
	if newOwner.DefaultMailboxID == nil {
		return nil, domain.ErrMailboxNotFound
	}

	extra, err := s.store.ListAliasMailboxes(alias.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range extra {
		if err := s.store.RemoveAliasMailbox(alias.ID, m.ID); err != nil {
			return nil, err
		}
	}

	previousOwner := alias.UserID
	alias.OriginalOwnerID = &previousOwner
	alias.UserID = newOwner.ID
	alias.MailboxID = *newOwner.DefaultMailboxID
	alias.TransferToken = nil

	if err := s.store.UpdateAlias(alias); err != nil {
		return nil, err
	}
	s.log.Info("alias transferred",
		zap.String("alias", alias.Email),
		zap.String("from_user", previousOwner),
		zap.String("to_user", newOwner.ID),
	)
	return alias, nil
}
