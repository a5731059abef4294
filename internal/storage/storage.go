package storage

import (
	"time"

	"mailmask/backend/internal/domain"
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUser(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	SaveSubscription(sub *domain.Subscription) error
	GetSubscription(userID string) (*domain.Subscription, error)
}

// MailboxRepository 定义收件邮箱数据存取操作。
type MailboxRepository interface {
	CreateMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	GetMailboxByEmail(userID, email string) (*domain.Mailbox, error)
	ListMailboxesByUser(userID string) ([]domain.Mailbox, error)
	UpdateMailbox(mailbox *domain.Mailbox) error
	// DeleteMailbox 只删除邮箱行本身，级联迁移由服务层编排
	DeleteMailbox(id string) error
}

// AliasRepository 定义别名数据存取操作。
//
// CreateAlias 在单个事务内完成三件事：回收站占用检查、
// 配额重新计数（maxAliases < 0 表示不限额）与唯一性插入，
// 并发创建不会超出配额。
type AliasRepository interface {
	CreateAlias(alias *domain.Alias, maxAliases int) error
	GetAlias(id string) (*domain.Alias, error)
	GetAliasByEmail(email string) (*domain.Alias, error)
	GetAliasByTransferToken(token string) (*domain.Alias, error)
	ListAliasesByUser(userID string, page, pageSize int) ([]domain.Alias, int64, error)
	ListAliasesByMailbox(mailboxID string) ([]domain.Alias, error)
	ListAliasesByCustomDomain(domainID string) ([]domain.Alias, error)
	ListAliasesByDirectory(directoryID string) ([]domain.Alias, error)
	CountAliasesByUser(userID string) (int64, error)
	UpdateAlias(alias *domain.Alias) error
	// DeleteAlias 是回收站记录的唯一写入路径：在单个事务内
	// 删除别名行并写入对应的回收站（自定义域名别名进入域名
	// 级回收站，其余进入全局回收站）。
	DeleteAlias(alias *domain.Alias) error
	AddAliasMailbox(aliasID, mailboxID string) error
	RemoveAliasMailbox(aliasID, mailboxID string) error
	ListAliasMailboxes(aliasID string) ([]domain.Mailbox, error)
}

// TrashRepository 定义回收站数据存取操作。
//
// CreateDeletedAlias 和 CreateDomainDeletedAlias 永远返回
// domain.ErrIllegalOperation：回收站记录只能由 DeleteAlias
// 的事务产生，不允许直接构造。
type TrashRepository interface {
	IsInTrash(email string) (bool, error)
	IsInDomainTrash(domainID, email string) (bool, error)
	ListDomainTrash(domainID string) ([]domain.DomainDeletedAlias, error)
	CreateDeletedAlias(record *domain.DeletedAlias) error
	CreateDomainDeletedAlias(record *domain.DomainDeletedAlias) error
}

// ContactRepository 定义联系人（反向别名）数据存取操作。
type ContactRepository interface {
	CreateContact(contact *domain.Contact) error
	GetContact(id string) (*domain.Contact, error)
	GetContactByAliasAndWebsite(aliasID, websiteEmail string) (*domain.Contact, error)
	GetContactByReplyEmail(replyEmail string) (*domain.Contact, error)
	ListContactsByAlias(aliasID string, page, pageSize int) ([]domain.Contact, int64, error)
	UpdateContact(contact *domain.Contact) error
	DeleteContact(id string) error
}

// EmailLogRepository 定义流转记录数据存取操作。
// 记录只增不改，没有更新和删除方法。
type EmailLogRepository interface {
	CreateEmailLog(log *domain.EmailLog) error
	ListEmailLogsByUser(userID string, limit int) ([]domain.EmailLog, error)
	GetUserStats(userID string) (*domain.ActivityStats, error)
	GetAliasStats(aliasID string) (*domain.ActivityStats, error)
}

// CustomDomainRepository 定义自定义域名数据存取操作。
type CustomDomainRepository interface {
	CreateCustomDomain(cd *domain.CustomDomain) error
	GetCustomDomain(id string) (*domain.CustomDomain, error)
	GetCustomDomainByName(name string) (*domain.CustomDomain, error)
	ListCustomDomainsByUser(userID string) ([]domain.CustomDomain, error)
	UpdateCustomDomain(cd *domain.CustomDomain) error
	// DeleteCustomDomain 只删除域名行本身，别名与回收站清理由服务层编排
	DeleteCustomDomain(id string) error
	AddDomainMailbox(domainID, mailboxID string) error
	RemoveDomainMailbox(domainID, mailboxID string) error
	ListDomainMailboxes(domainID string) ([]domain.Mailbox, error)
	CreateAutoCreateRule(rule *domain.AutoCreateRule) error
	ListAutoCreateRules(domainID string) ([]domain.AutoCreateRule, error)
	DeleteAutoCreateRule(id string) error
	AddRuleMailbox(ruleID, mailboxID string) error
	ListRuleMailboxes(ruleID string) ([]domain.Mailbox, error)
}

// DirectoryRepository 定义目录数据存取操作。
type DirectoryRepository interface {
	CreateDirectory(dir *domain.Directory) error
	GetDirectory(id string) (*domain.Directory, error)
	GetDirectoryByName(name string) (*domain.Directory, error)
	ListDirectoriesByUser(userID string) ([]domain.Directory, error)
	UpdateDirectory(dir *domain.Directory) error
	// DeleteDirectory 只删除目录行本身，别名清理由服务层编排
	DeleteDirectory(id string) error
	AddDirectoryMailbox(directoryID, mailboxID string) error
	RemoveDirectoryMailbox(directoryID, mailboxID string) error
	ListDirectoryMailboxes(directoryID string) ([]domain.Mailbox, error)
}

// PublicDomainRepository 定义公共域名数据存取操作。
type PublicDomainRepository interface {
	CreatePublicDomain(pd *domain.PublicDomain) error
	GetPublicDomain(id string) (*domain.PublicDomain, error)
	GetPublicDomainByName(name string) (*domain.PublicDomain, error)
	ListPublicDomains() ([]domain.PublicDomain, error)
}

// ApiKeyRepository 定义 API Key 数据存取操作。
type ApiKeyRepository interface {
	CreateApiKey(key *domain.ApiKey) error
	GetApiKeyByCode(code string) (*domain.ApiKey, error)
	ListApiKeysByUser(userID string) ([]domain.ApiKey, error)
	DeleteApiKey(id string) error
	// TouchApiKey 更新使用时间并递增使用计数
	TouchApiKey(id string) error
}

// JobRepository 定义后台任务队列操作。
type JobRepository interface {
	EnqueueJob(job *domain.Job) error
	// TakePendingJobs 取出到期且未被领取的任务并标记为已领取
	TakePendingJobs(now time.Time, limit int) ([]domain.Job, error)
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	MailboxRepository
	AliasRepository
	TrashRepository
	ContactRepository
	EmailLogRepository
	CustomDomainRepository
	DirectoryRepository
	PublicDomainRepository
	ApiKeyRepository
	JobRepository

	// 工具方法
	Close() error
	Health() error
}
