package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
)

// Store 关系数据库存储实现，PostgreSQL 和 MySQL 共用。
type Store struct {
	db *gorm.DB
}

// NewStore 根据配置创建数据库存储实例。
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}

	store, err := NewStoreWithDialector(dialector)
	if err != nil {
		return nil, err
	}

	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return store, nil
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
// TranslateError 把方言各异的唯一约束冲突统一成 gorm.ErrDuplicatedKey。
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.Subscription{},
		&domain.Mailbox{},
		&domain.Alias{},
		&domain.AliasMailbox{},
		&domain.DeletedAlias{},
		&domain.DomainDeletedAlias{},
		&domain.Contact{},
		&domain.EmailLog{},
		&domain.CustomDomain{},
		&domain.DomainMailbox{},
		&domain.AutoCreateRule{},
		&domain.AutoCreateRuleMailbox{},
		&domain.Directory{},
		&domain.DirectoryMailbox{},
		&domain.PublicDomain{},
		&domain.ApiKey{},
		&domain.Job{},
	)
}

// notFound 把 gorm 的记录缺失错误翻译成领域错误
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// ========== 用户 ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	err := s.db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAddressExists
	}
	return err
}

// GetUser 根据 ID 获取用户
func (s *Store) GetUser(id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

// UpdateUser 更新用户信息
func (s *Store) UpdateUser(user *domain.User) error {
	return s.db.Save(user).Error
}

// SaveSubscription 写入或覆盖用户订阅记录
func (s *Store) SaveSubscription(sub *domain.Subscription) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(sub).Error
}

// GetSubscription 获取用户订阅
func (s *Store) GetSubscription(userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := s.db.First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &sub, nil
}

// ========== 邮箱 ==========

// CreateMailbox 创建收件邮箱
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	err := s.db.Create(mailbox).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAddressExists
	}
	return err
}

// GetMailbox 根据 ID 获取邮箱
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	if err := s.db.First(&mailbox, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrMailboxNotFound)
	}
	return &mailbox, nil
}

// GetMailboxByEmail 获取用户名下指定地址的邮箱
func (s *Store) GetMailboxByEmail(userID, email string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.db.First(&mailbox, "user_id = ? AND email = ?", userID, email).Error
	if err != nil {
		return nil, notFound(err, domain.ErrMailboxNotFound)
	}
	return &mailbox, nil
}

// ListMailboxesByUser 按创建时间列出用户的全部邮箱
func (s *Store) ListMailboxesByUser(userID string) ([]domain.Mailbox, error) {
	var out []domain.Mailbox
	err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

// UpdateMailbox 更新邮箱信息
func (s *Store) UpdateMailbox(mailbox *domain.Mailbox) error {
	return s.db.Save(mailbox).Error
}

// DeleteMailbox 删除邮箱行并清理关联表引用
func (s *Store) DeleteMailbox(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.AliasMailbox{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.DomainMailbox{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.AutoCreateRuleMailbox{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.DirectoryMailbox{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Mailbox{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrMailboxNotFound
		}
		return nil
	})
}

// ========== 别名 ==========

// CreateAlias 在单个事务内完成回收站检查、配额重计数与插入。
// maxAliases < 0 表示不限额。
func (s *Store) CreateAlias(alias *domain.Alias, maxAliases int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var trashed int64
		if err := tx.Model(&domain.DeletedAlias{}).
			Where("email = ?", alias.Email).
			Count(&trashed).Error; err != nil {
			return err
		}
		if trashed > 0 {
			return domain.ErrAddressInTrash
		}
		if alias.CustomDomainID != nil {
			if err := tx.Model(&domain.DomainDeletedAlias{}).
				Where("domain_id = ? AND email = ?", *alias.CustomDomainID, alias.Email).
				Count(&trashed).Error; err != nil {
				return err
			}
			if trashed > 0 {
				return domain.ErrAddressInTrash
			}
		}

		if maxAliases >= 0 {
			var count int64
			if err := tx.Model(&domain.Alias{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", alias.UserID).
				Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(maxAliases) {
				return domain.ErrQuotaExceeded
			}
		}

		if err := tx.Create(alias).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAddressExists
			}
			return err
		}
		return nil
	})
}

// GetAlias 根据 ID 获取别名
func (s *Store) GetAlias(id string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.First(&alias, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrAliasNotFound)
	}
	return &alias, nil
}

// GetAliasByEmail 根据地址获取别名
func (s *Store) GetAliasByEmail(email string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.First(&alias, "email = ?", email).Error; err != nil {
		return nil, notFound(err, domain.ErrAliasNotFound)
	}
	return &alias, nil
}

// GetAliasByTransferToken 根据转移令牌获取别名
func (s *Store) GetAliasByTransferToken(token string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.First(&alias, "transfer_token = ?", token).Error; err != nil {
		return nil, notFound(err, domain.ErrAliasNotFound)
	}
	return &alias, nil
}

// ListAliasesByUser 分页列出用户的别名，置顶在前、新建在前
func (s *Store) ListAliasesByUser(userID string, page, pageSize int) ([]domain.Alias, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&domain.Alias{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Alias
	err := s.db.Where("user_id = ?", userID).
		Order("pinned DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

// ListAliasesByMailbox 列出主邮箱或附加邮箱指向该邮箱的别名
func (s *Store) ListAliasesByMailbox(mailboxID string) ([]domain.Alias, error) {
	var out []domain.Alias
	err := s.db.
		Where("mailbox_id = ? OR id IN (?)",
			mailboxID,
			s.db.Model(&domain.AliasMailbox{}).Select("alias_id").Where("mailbox_id = ?", mailboxID),
		).
		Find(&out).Error
	return out, err
}

// ListAliasesByCustomDomain 列出自定义域名下的全部别名
func (s *Store) ListAliasesByCustomDomain(domainID string) ([]domain.Alias, error) {
	var out []domain.Alias
	err := s.db.Where("custom_domain_id = ?", domainID).Find(&out).Error
	return out, err
}

// ListAliasesByDirectory 列出目录下的全部别名
func (s *Store) ListAliasesByDirectory(directoryID string) ([]domain.Alias, error) {
	var out []domain.Alias
	err := s.db.Where("directory_id = ?", directoryID).Find(&out).Error
	return out, err
}

// CountAliasesByUser 统计用户别名总数
func (s *Store) CountAliasesByUser(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&domain.Alias{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// UpdateAlias 更新别名信息
func (s *Store) UpdateAlias(alias *domain.Alias) error {
	return s.db.Save(alias).Error
}

// DeleteAlias 删除别名并写入回收站，单个事务保证两步原子。
// 这是回收站记录唯一的写入路径；别名已不存在时静默成功。
func (s *Store) DeleteAlias(alias *domain.Alias) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var stored domain.Alias
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&stored, "id = ?", alias.ID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		// 联系人一并删除，流转记录与别名脱钩
		if err := tx.Delete(&domain.Contact{}, "alias_id = ?", stored.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.EmailLog{}).
			Where("alias_id = ?", stored.ID).
			Update("alias_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.AliasMailbox{}, "alias_id = ?", stored.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Alias{}, "id = ?", stored.ID).Error; err != nil {
			return err
		}

		if stored.CustomDomainID != nil {
			return tx.Create(&domain.DomainDeletedAlias{
				ID:       uuid.NewString(),
				DomainID: *stored.CustomDomainID,
				Email:    stored.Email,
				UserID:   stored.UserID,
			}).Error
		}
		return tx.Create(&domain.DeletedAlias{
			ID:    uuid.NewString(),
			Email: stored.Email,
		}).Error
	})
}

// AddAliasMailbox 为别名附加一个邮箱
func (s *Store) AddAliasMailbox(aliasID, mailboxID string) error {
	err := s.db.Create(&domain.AliasMailbox{
		ID:        uuid.NewString(),
		AliasID:   aliasID,
		MailboxID: mailboxID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// RemoveAliasMailbox 解除别名与附加邮箱的关联
func (s *Store) RemoveAliasMailbox(aliasID, mailboxID string) error {
	return s.db.Delete(&domain.AliasMailbox{}, "alias_id = ? AND mailbox_id = ?", aliasID, mailboxID).Error
}

// ListAliasMailboxes 列出别名的附加邮箱
func (s *Store) ListAliasMailboxes(aliasID string) ([]domain.Mailbox, error) {
	var out []domain.Mailbox
	err := s.db.
		Where("id IN (?)", s.db.Model(&domain.AliasMailbox{}).Select("mailbox_id").Where("alias_id = ?", aliasID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// ========== 回收站 ==========

// IsInTrash 检查地址是否在全局回收站中
func (s *Store) IsInTrash(email string) (bool, error) {
	var count int64
	err := s.db.Model(&domain.DeletedAlias{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// IsInDomainTrash 检查地址是否在指定域名的回收站中
func (s *Store) IsInDomainTrash(domainID, email string) (bool, error) {
	var count int64
	err := s.db.Model(&domain.DomainDeletedAlias{}).
		Where("domain_id = ? AND email = ?", domainID, email).
		Count(&count).Error
	return count > 0, err
}

// ListDomainTrash 列出域名回收站的全部记录
func (s *Store) ListDomainTrash(domainID string) ([]domain.DomainDeletedAlias, error) {
	var out []domain.DomainDeletedAlias
	err := s.db.Where("domain_id = ?", domainID).Order("created_at").Find(&out).Error
	return out, err
}

// CreateDeletedAlias 直接写入全局回收站是非法操作
func (s *Store) CreateDeletedAlias(record *domain.DeletedAlias) error {
	return domain.ErrIllegalOperation
}

// CreateDomainDeletedAlias 直接写入域名回收站是非法操作
func (s *Store) CreateDomainDeletedAlias(record *domain.DomainDeletedAlias) error {
	return domain.ErrIllegalOperation
}

// ========== 联系人 ==========

// CreateContact 创建联系人
func (s *Store) CreateContact(contact *domain.Contact) error {
	err := s.db.Create(contact).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrContactExists
	}
	return err
}

// GetContact 根据 ID 获取联系人
func (s *Store) GetContact(id string) (*domain.Contact, error) {
	var contact domain.Contact
	if err := s.db.First(&contact, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrContactNotFound)
	}
	return &contact, nil
}

// GetContactByAliasAndWebsite 获取别名下指定外部发件人的联系人
func (s *Store) GetContactByAliasAndWebsite(aliasID, websiteEmail string) (*domain.Contact, error) {
	var contact domain.Contact
	err := s.db.First(&contact, "alias_id = ? AND website_email = ?", aliasID, websiteEmail).Error
	if err != nil {
		return nil, notFound(err, domain.ErrContactNotFound)
	}
	return &contact, nil
}

// GetContactByReplyEmail 根据反向别名地址获取联系人
func (s *Store) GetContactByReplyEmail(replyEmail string) (*domain.Contact, error) {
	var contact domain.Contact
	if err := s.db.First(&contact, "reply_email = ?", replyEmail).Error; err != nil {
		return nil, notFound(err, domain.ErrContactNotFound)
	}
	return &contact, nil
}

// ListContactsByAlias 分页列出别名的联系人，新建在前
func (s *Store) ListContactsByAlias(aliasID string, page, pageSize int) ([]domain.Contact, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&domain.Contact{}).Where("alias_id = ?", aliasID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Contact
	err := s.db.Where("alias_id = ?", aliasID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

// UpdateContact 更新联系人信息
func (s *Store) UpdateContact(contact *domain.Contact) error {
	return s.db.Save(contact).Error
}

// DeleteContact 删除联系人
func (s *Store) DeleteContact(id string) error {
	result := s.db.Delete(&domain.Contact{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

// ========== 流转记录 ==========

// CreateEmailLog 追加一条流转记录
func (s *Store) CreateEmailLog(log *domain.EmailLog) error {
	return s.db.Create(log).Error
}

// ListEmailLogsByUser 列出用户最近的流转记录，新的在前
func (s *Store) ListEmailLogsByUser(userID string, limit int) ([]domain.EmailLog, error) {
	var out []domain.EmailLog
	query := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

// statsRow 聚合查询的扫描目标
type statsRow struct {
	Forward int64
	Reply   int64
	Block   int64
	Bounce  int64
}

// 动作判定优先级：reply > bounced > block > forward，
// 与 EmailLog.Action 保持一致
const statsSelect = `
COALESCE(SUM(CASE WHEN is_reply THEN 1 ELSE 0 END), 0) AS reply,
COALESCE(SUM(CASE WHEN NOT is_reply AND bounced THEN 1 ELSE 0 END), 0) AS bounce,
COALESCE(SUM(CASE WHEN NOT is_reply AND NOT bounced AND blocked THEN 1 ELSE 0 END), 0) AS block,
COALESCE(SUM(CASE WHEN NOT is_reply AND NOT bounced AND NOT blocked THEN 1 ELSE 0 END), 0) AS forward`

// GetUserStats 聚合统计用户的活动计数
func (s *Store) GetUserStats(userID string) (*domain.ActivityStats, error) {
	var row statsRow
	err := s.db.Model(&domain.EmailLog{}).
		Select(statsSelect).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &domain.ActivityStats{Forward: row.Forward, Reply: row.Reply, Block: row.Block, Bounce: row.Bounce}, nil
}

// GetAliasStats 聚合统计单个别名的活动计数
func (s *Store) GetAliasStats(aliasID string) (*domain.ActivityStats, error) {
	var row statsRow
	err := s.db.Model(&domain.EmailLog{}).
		Select(statsSelect).
		Where("alias_id = ?", aliasID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &domain.ActivityStats{Forward: row.Forward, Reply: row.Reply, Block: row.Block, Bounce: row.Bounce}, nil
}

// ========== 自定义域名 ==========

// CreateCustomDomain 创建自定义域名
func (s *Store) CreateCustomDomain(cd *domain.CustomDomain) error {
	err := s.db.Create(cd).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAddressExists
	}
	return err
}

// GetCustomDomain 根据 ID 获取自定义域名
func (s *Store) GetCustomDomain(id string) (*domain.CustomDomain, error) {
	var cd domain.CustomDomain
	if err := s.db.First(&cd, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrDomainNotFound)
	}
	return &cd, nil
}

// GetCustomDomainByName 根据域名获取自定义域名
func (s *Store) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	var cd domain.CustomDomain
	if err := s.db.First(&cd, "domain = ?", name).Error; err != nil {
		return nil, notFound(err, domain.ErrDomainNotFound)
	}
	return &cd, nil
}

// ListCustomDomainsByUser 列出用户的自定义域名
func (s *Store) ListCustomDomainsByUser(userID string) ([]domain.CustomDomain, error) {
	var out []domain.CustomDomain
	err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

// UpdateCustomDomain 更新自定义域名信息
func (s *Store) UpdateCustomDomain(cd *domain.CustomDomain) error {
	return s.db.Save(cd).Error
}

// DeleteCustomDomain 删除域名行及其规则、邮箱关联和域名回收站
func (s *Store) DeleteCustomDomain(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.AutoCreateRuleMailbox{},
			"rule_id IN (?)",
			tx.Model(&domain.AutoCreateRule{}).Select("id").Where("custom_domain_id = ?", id),
		).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.AutoCreateRule{}, "custom_domain_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.DomainMailbox{}, "domain_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.DomainDeletedAlias{}, "domain_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.CustomDomain{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrDomainNotFound
		}
		return nil
	})
}

// AddDomainMailbox 为自定义域名关联一个邮箱
func (s *Store) AddDomainMailbox(domainID, mailboxID string) error {
	err := s.db.Create(&domain.DomainMailbox{
		ID:        uuid.NewString(),
		DomainID:  domainID,
		MailboxID: mailboxID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// RemoveDomainMailbox 解除域名与邮箱的关联
func (s *Store) RemoveDomainMailbox(domainID, mailboxID string) error {
	return s.db.Delete(&domain.DomainMailbox{}, "domain_id = ? AND mailbox_id = ?", domainID, mailboxID).Error
}

// ListDomainMailboxes 列出域名关联的邮箱
func (s *Store) ListDomainMailboxes(domainID string) ([]domain.Mailbox, error) {
	var out []domain.Mailbox
	err := s.db.
		Where("id IN (?)", s.db.Model(&domain.DomainMailbox{}).Select("mailbox_id").Where("domain_id = ?", domainID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// CreateAutoCreateRule 创建自动创建规则
func (s *Store) CreateAutoCreateRule(rule *domain.AutoCreateRule) error {
	return s.db.Create(rule).Error
}

// ListAutoCreateRules 按 Order 升序列出域名的自动创建规则
func (s *Store) ListAutoCreateRules(domainID string) ([]domain.AutoCreateRule, error) {
	var out []domain.AutoCreateRule
	err := s.db.Where("custom_domain_id = ?", domainID).Order(`"order"`).Find(&out).Error
	return out, err
}

// DeleteAutoCreateRule 删除自动创建规则及其邮箱关联
func (s *Store) DeleteAutoCreateRule(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.AutoCreateRuleMailbox{}, "rule_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.AutoCreateRule{}, "id = ?", id).Error
	})
}

// AddRuleMailbox 为自动创建规则关联一个邮箱
func (s *Store) AddRuleMailbox(ruleID, mailboxID string) error {
	err := s.db.Create(&domain.AutoCreateRuleMailbox{
		ID:        uuid.NewString(),
		RuleID:    ruleID,
		MailboxID: mailboxID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// ListRuleMailboxes 列出规则关联的邮箱
func (s *Store) ListRuleMailboxes(ruleID string) ([]domain.Mailbox, error) {
	var out []domain.Mailbox
	err := s.db.
		Where("id IN (?)", s.db.Model(&domain.AutoCreateRuleMailbox{}).Select("mailbox_id").Where("rule_id = ?", ruleID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// ========== 目录 ==========

// CreateDirectory 创建目录
func (s *Store) CreateDirectory(dir *domain.Directory) error {
	err := s.db.Create(dir).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAddressExists
	}
	return err
}

// GetDirectory 根据 ID 获取目录
func (s *Store) GetDirectory(id string) (*domain.Directory, error) {
	var dir domain.Directory
	if err := s.db.First(&dir, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrDirectoryNotFound)
	}
	return &dir, nil
}

// GetDirectoryByName 根据目录名获取目录
func (s *Store) GetDirectoryByName(name string) (*domain.Directory, error) {
	var dir domain.Directory
	if err := s.db.First(&dir, "name = ?", name).Error; err != nil {
		return nil, notFound(err, domain.ErrDirectoryNotFound)
	}
	return &dir, nil
}

// ListDirectoriesByUser 列出用户的目录
func (s *Store) ListDirectoriesByUser(userID string) ([]domain.Directory, error) {
	var out []domain.Directory
	err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

// UpdateDirectory 更新目录信息
func (s *Store) UpdateDirectory(dir *domain.Directory) error {
	return s.db.Save(dir).Error
}

// DeleteDirectory 删除目录行及其邮箱关联
func (s *Store) DeleteDirectory(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.DirectoryMailbox{}, "directory_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Directory{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrDirectoryNotFound
		}
		return nil
	})
}

// AddDirectoryMailbox 为目录关联一个邮箱
func (s *Store) AddDirectoryMailbox(directoryID, mailboxID string) error {
	err := s.db.Create(&domain.DirectoryMailbox{
		ID:          uuid.NewString(),
		DirectoryID: directoryID,
		MailboxID:   mailboxID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// RemoveDirectoryMailbox 解除目录与邮箱的关联
func (s *Store) RemoveDirectoryMailbox(directoryID, mailboxID string) error {
	return s.db.Delete(&domain.DirectoryMailbox{}, "directory_id = ? AND mailbox_id = ?", directoryID, mailboxID).Error
}

// ListDirectoryMailboxes 列出目录关联的邮箱
func (s *Store) ListDirectoryMailboxes(directoryID string) ([]domain.Mailbox, error) {
	var out []domain.Mailbox
	err := s.db.
		Where("id IN (?)", s.db.Model(&domain.DirectoryMailbox{}).Select("mailbox_id").Where("directory_id = ?", directoryID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// ========== 公共域名 ==========

// CreatePublicDomain 登记一个公共域名
func (s *Store) CreatePublicDomain(pd *domain.PublicDomain) error {
	err := s.db.Create(pd).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAddressExists
	}
	return err
}

// GetPublicDomain 根据 ID 获取公共域名
func (s *Store) GetPublicDomain(id string) (*domain.PublicDomain, error) {
	var pd domain.PublicDomain
	if err := s.db.First(&pd, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrDomainNotFound)
	}
	return &pd, nil
}

// GetPublicDomainByName 根据域名获取公共域名
func (s *Store) GetPublicDomainByName(name string) (*domain.PublicDomain, error) {
	var pd domain.PublicDomain
	if err := s.db.First(&pd, "domain = ?", name).Error; err != nil {
		return nil, notFound(err, domain.ErrDomainNotFound)
	}
	return &pd, nil
}

// ListPublicDomains 按登记顺序列出公共域名
func (s *Store) ListPublicDomains() ([]domain.PublicDomain, error) {
	var out []domain.PublicDomain
	err := s.db.Order("created_at").Find(&out).Error
	return out, err
}

// ========== API Key ==========

// CreateApiKey 创建 API Key
func (s *Store) CreateApiKey(key *domain.ApiKey) error {
	return s.db.Create(key).Error
}

// GetApiKeyByCode 根据密钥值获取 API Key
func (s *Store) GetApiKeyByCode(code string) (*domain.ApiKey, error) {
	var key domain.ApiKey
	if err := s.db.First(&key, "code = ?", code).Error; err != nil {
		return nil, notFound(err, domain.ErrApiKeyNotFound)
	}
	return &key, nil
}

// ListApiKeysByUser 列出用户的 API Key
func (s *Store) ListApiKeysByUser(userID string) ([]domain.ApiKey, error) {
	var out []domain.ApiKey
	err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

// DeleteApiKey 删除 API Key
func (s *Store) DeleteApiKey(id string) error {
	result := s.db.Delete(&domain.ApiKey{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrApiKeyNotFound
	}
	return nil
}

// TouchApiKey 更新使用时间并递增使用计数
func (s *Store) TouchApiKey(id string) error {
	return s.db.Model(&domain.ApiKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_used_at": time.Now(),
			"times":        gorm.Expr("times + 1"),
		}).Error
}

// ========== 任务队列 ==========

// EnqueueJob 入队一个后台任务
func (s *Store) EnqueueJob(job *domain.Job) error {
	if job.RunAt.IsZero() {
		job.RunAt = time.Now()
	}
	return s.db.Create(job).Error
}

// TakePendingJobs 取出到期且未被领取的任务并标记为已领取。
// 行级锁避免多个任务进程领取同一批任务。
func (s *Store) TakePendingJobs(now time.Time, limit int) ([]domain.Job, error) {
	var out []domain.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("taken = ? AND run_at <= ?", false, now).
			Order("run_at").
			Limit(limit).
			Find(&out).Error
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		ids := make([]string, len(out))
		for i := range out {
			ids[i] = out[i].ID
			out[i].Taken = true
		}
		return tx.Model(&domain.Job{}).Where("id IN ?", ids).Update("taken", true).Error
	})
	return out, err
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
