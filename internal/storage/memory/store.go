package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailmask/backend/internal/domain"
)

// Store 使用内存保存全部数据，主要用于开发验证和单元测试。
// 所有唯一性约束、配额和回收站规则与数据库实现保持一致。
type Store struct {
	mu sync.RWMutex

	users       map[string]*domain.User // userID -> user
	userByEmail map[string]string       // email -> userID
	subs        map[string]*domain.Subscription

	mailboxes          map[string]*domain.Mailbox
	mailboxByUserEmail map[string]string // "userID|email" -> mailboxID

	aliases         map[string]*domain.Alias
	aliasByEmail    map[string]string // email -> aliasID
	aliasByTransfer map[string]string // transferToken -> aliasID
	aliasMailboxes  map[string]map[string]bool

	deletedAliases map[string]*domain.DeletedAlias                   // email -> record
	domainTrash    map[string]map[string]*domain.DomainDeletedAlias // domainID -> email -> record

	contacts          map[string]*domain.Contact
	contactByPair     map[string]string // "aliasID|websiteEmail" -> contactID
	contactByReply    map[string]string // replyEmail -> contactID
	contactIDsByAlias map[string][]string

	emailLogs []*domain.EmailLog

	customDomains      map[string]*domain.CustomDomain
	customDomainByName map[string]string
	domainMailboxes    map[string]map[string]bool
	rules              map[string]*domain.AutoCreateRule
	rulesByDomain      map[string][]string
	ruleMailboxes      map[string]map[string]bool

	directories        map[string]*domain.Directory
	directoryByName    map[string]string
	directoryMailboxes map[string]map[string]bool

	publicDomains      map[string]*domain.PublicDomain
	publicDomainByName map[string]string
	publicDomainOrder  []string

	apiKeys      map[string]*domain.ApiKey
	apiKeyByCode map[string]string

	jobs []*domain.Job
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:              make(map[string]*domain.User),
		userByEmail:        make(map[string]string),
		subs:               make(map[string]*domain.Subscription),
		mailboxes:          make(map[string]*domain.Mailbox),
		mailboxByUserEmail: make(map[string]string),
		aliases:            make(map[string]*domain.Alias),
		aliasByEmail:       make(map[string]string),
		aliasByTransfer:    make(map[string]string),
		aliasMailboxes:     make(map[string]map[string]bool),
		deletedAliases:     make(map[string]*domain.DeletedAlias),
		domainTrash:        make(map[string]map[string]*domain.DomainDeletedAlias),
		contacts:           make(map[string]*domain.Contact),
		contactByPair:      make(map[string]string),
		contactByReply:     make(map[string]string),
		contactIDsByAlias:   make(map[string][]string),
		customDomains:      make(map[string]*domain.CustomDomain),
		customDomainByName: make(map[string]string),
		domainMailboxes:    make(map[string]map[string]bool),
		rules:              make(map[string]*domain.AutoCreateRule),
		rulesByDomain:      make(map[string][]string),
		ruleMailboxes:      make(map[string]map[string]bool),
		directories:        make(map[string]*domain.Directory),
		directoryByName:    make(map[string]string),
		directoryMailboxes: make(map[string]map[string]bool),
		publicDomains:      make(map[string]*domain.PublicDomain),
		publicDomainByName: make(map[string]string),
		apiKeys:            make(map[string]*domain.ApiKey),
		apiKeyByCode:       make(map[string]string),
	}
}

func pairKey(a, b string) string {
	return a + "|" + b
}

// ---- 用户 ----

// CreateUser 创建用户，邮箱重复时返回 ErrAddressExists。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userByEmail[user.Email]; ok {
		return domain.ErrAddressExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = user
	s.userByEmail[user.Email] = user.ID
	return nil
}

// GetUser 根据 ID 获取用户。
func (s *Store) GetUser(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail 根据邮箱获取用户。
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

// UpdateUser 更新用户信息。
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if old.Email != user.Email {
		delete(s.userByEmail, old.Email)
		s.userByEmail[user.Email] = user.ID
	}
	user.UpdatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

// SaveSubscription 写入或覆盖用户的订阅记录。
func (s *Store) SaveSubscription(sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.subs[sub.UserID] = sub
	return nil
}

// GetSubscription 获取用户订阅，没有记录时返回 ErrUserNotFound。
func (s *Store) GetSubscription(userID string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return sub, nil
}

// ---- 邮箱 ----

// CreateMailbox 创建收件邮箱，同一用户下地址重复时返回 ErrAddressExists。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(mailbox.UserID, mailbox.Email)
	if _, ok := s.mailboxByUserEmail[key]; ok {
		return domain.ErrAddressExists
	}
	if mailbox.CreatedAt.IsZero() {
		mailbox.CreatedAt = time.Now()
	}
	s.mailboxes[mailbox.ID] = mailbox
	s.mailboxByUserEmail[key] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil, domain.ErrMailboxNotFound
	}
	return mailbox, nil
}

// GetMailboxByEmail 获取用户名下指定地址的邮箱。
func (s *Store) GetMailboxByEmail(userID, email string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.mailboxByUserEmail[pairKey(userID, email)]
	if !ok {
		return nil, domain.ErrMailboxNotFound
	}
	return s.mailboxes[id], nil
}

// ListMailboxesByUser 按创建时间列出用户的全部邮箱。
func (s *Store) ListMailboxesByUser(userID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Mailbox
	for _, m := range s.mailboxes {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateMailbox 更新邮箱信息。
func (s *Store) UpdateMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.mailboxes[mailbox.ID]
	if !ok {
		return domain.ErrMailboxNotFound
	}
	if old.Email != mailbox.Email {
		delete(s.mailboxByUserEmail, pairKey(old.UserID, old.Email))
		s.mailboxByUserEmail[pairKey(mailbox.UserID, mailbox.Email)] = mailbox.ID
	}
	mailbox.UpdatedAt = time.Now()
	s.mailboxes[mailbox.ID] = mailbox
	return nil
}

// DeleteMailbox 删除邮箱行，同时清理关联表中的引用。
func (s *Store) DeleteMailbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return domain.ErrMailboxNotFound
	}
	delete(s.mailboxes, id)
	delete(s.mailboxByUserEmail, pairKey(mailbox.UserID, mailbox.Email))
	for aliasID := range s.aliasMailboxes {
		delete(s.aliasMailboxes[aliasID], id)
	}
	for domainID := range s.domainMailboxes {
		delete(s.domainMailboxes[domainID], id)
	}
	for ruleID := range s.ruleMailboxes {
		delete(s.ruleMailboxes[ruleID], id)
	}
	for dirID := range s.directoryMailboxes {
		delete(s.directoryMailboxes[dirID], id)
	}
	return nil
}

// ---- 别名 ----

// CreateAlias 在持锁期间完成回收站检查、配额重计数与唯一性插入。
// maxAliases < 0 表示不限额。
func (s *Store) CreateAlias(alias *domain.Alias, maxAliases int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deletedAliases[alias.Email]; ok {
		return domain.ErrAddressInTrash
	}
	if alias.CustomDomainID != nil {
		if _, ok := s.domainTrash[*alias.CustomDomainID][alias.Email]; ok {
			return domain.ErrAddressInTrash
		}
	}
	if _, ok := s.aliasByEmail[alias.Email]; ok {
		return domain.ErrAddressExists
	}
	if maxAliases >= 0 {
		var count int
		for _, a := range s.aliases {
			if a.UserID == alias.UserID {
				count++
			}
		}
		if count >= maxAliases {
			return domain.ErrQuotaExceeded
		}
	}

	if alias.CreatedAt.IsZero() {
		alias.CreatedAt = time.Now()
	}
	s.aliases[alias.ID] = alias
	s.aliasByEmail[alias.Email] = alias.ID
	if alias.TransferToken != nil {
		s.aliasByTransfer[*alias.TransferToken] = alias.ID
	}
	return nil
}

// GetAlias 根据 ID 获取别名。
func (s *Store) GetAlias(id string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alias, ok := s.aliases[id]
	if !ok {
		return nil, domain.ErrAliasNotFound
	}
	return alias, nil
}

// GetAliasByEmail 根据地址获取别名。
func (s *Store) GetAliasByEmail(email string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.aliasByEmail[email]
	if !ok {
		return nil, domain.ErrAliasNotFound
	}
	return s.aliases[id], nil
}

// GetAliasByTransferToken 根据转移令牌获取别名。
func (s *Store) GetAliasByTransferToken(token string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.aliasByTransfer[token]
	if !ok {
		return nil, domain.ErrAliasNotFound
	}
	return s.aliases[id], nil
}

// ListAliasesByUser 分页列出用户的别名，置顶在前、新建在前。
func (s *Store) ListAliasesByUser(userID string, page, pageSize int) ([]domain.Alias, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []domain.Alias
	for _, a := range s.aliases {
		if a.UserID == userID {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Pinned != all[j].Pinned {
			return all[i].Pinned
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ListAliasesByMailbox 列出主邮箱或附加邮箱指向该邮箱的别名。
func (s *Store) ListAliasesByMailbox(mailboxID string) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Alias
	for _, a := range s.aliases {
		if a.MailboxID == mailboxID || s.aliasMailboxes[a.ID][mailboxID] {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ListAliasesByCustomDomain 列出自定义域名下的全部别名。
func (s *Store) ListAliasesByCustomDomain(domainID string) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Alias
	for _, a := range s.aliases {
		if a.CustomDomainID != nil && *a.CustomDomainID == domainID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ListAliasesByDirectory 列出目录下的全部别名。
func (s *Store) ListAliasesByDirectory(directoryID string) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Alias
	for _, a := range s.aliases {
		if a.DirectoryID != nil && *a.DirectoryID == directoryID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// CountAliasesByUser 统计用户别名总数。
func (s *Store) CountAliasesByUser(userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, a := range s.aliases {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

// UpdateAlias 更新别名信息，地址本身不允许修改。
func (s *Store) UpdateAlias(alias *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.aliases[alias.ID]
	if !ok {
		return domain.ErrAliasNotFound
	}
	if old.TransferToken != nil {
		delete(s.aliasByTransfer, *old.TransferToken)
	}
	if alias.TransferToken != nil {
		s.aliasByTransfer[*alias.TransferToken] = alias.ID
	}
	alias.UpdatedAt = time.Now()
	s.aliases[alias.ID] = alias
	return nil
}

// DeleteAlias 删除别名并写入回收站。这是回收站记录唯一的写入路径。
// 别名已不存在时静默成功。
func (s *Store) DeleteAlias(alias *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.aliases[alias.ID]
	if !ok {
		return nil
	}

	delete(s.aliases, stored.ID)
	delete(s.aliasByEmail, stored.Email)
	if stored.TransferToken != nil {
		delete(s.aliasByTransfer, *stored.TransferToken)
	}
	delete(s.aliasMailboxes, stored.ID)

	// 别名的联系人一并删除，已有流转记录与别名脱钩
	for _, contactID := range s.contactIDsByAlias[stored.ID] {
		if c, ok := s.contacts[contactID]; ok {
			delete(s.contactByPair, pairKey(c.AliasID, c.WebsiteEmail))
			delete(s.contactByReply, c.ReplyEmail)
			delete(s.contacts, contactID)
		}
	}
	delete(s.contactIDsByAlias, stored.ID)
	for _, l := range s.emailLogs {
		if l.AliasID != nil && *l.AliasID == stored.ID {
			l.AliasID = nil
		}
	}

	now := time.Now()
	if stored.CustomDomainID != nil {
		domainID := *stored.CustomDomainID
		if s.domainTrash[domainID] == nil {
			s.domainTrash[domainID] = make(map[string]*domain.DomainDeletedAlias)
		}
		s.domainTrash[domainID][stored.Email] = &domain.DomainDeletedAlias{
			ID:        uuid.NewString(),
			DomainID:  domainID,
			Email:     stored.Email,
			UserID:    stored.UserID,
			CreatedAt: now,
		}
	} else {
		s.deletedAliases[stored.Email] = &domain.DeletedAlias{
			ID:        uuid.NewString(),
			Email:     stored.Email,
			CreatedAt: now,
		}
	}
	return nil
}

// AddAliasMailbox 为别名附加一个邮箱。
func (s *Store) AddAliasMailbox(aliasID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[aliasID]; !ok {
		return domain.ErrAliasNotFound
	}
	if _, ok := s.mailboxes[mailboxID]; !ok {
		return domain.ErrMailboxNotFound
	}
	if s.aliasMailboxes[aliasID] == nil {
		s.aliasMailboxes[aliasID] = make(map[string]bool)
	}
	s.aliasMailboxes[aliasID][mailboxID] = true
	return nil
}

// RemoveAliasMailbox 解除别名与附加邮箱的关联。
func (s *Store) RemoveAliasMailbox(aliasID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.aliasMailboxes[aliasID], mailboxID)
	return nil
}

// ListAliasMailboxes 列出别名的附加邮箱。
func (s *Store) ListAliasMailboxes(aliasID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMailboxesLocked(s.aliasMailboxes[aliasID]), nil
}

// collectMailboxesLocked 把邮箱 ID 集合展开成有序的邮箱列表
func (s *Store) collectMailboxesLocked(ids map[string]bool) []domain.Mailbox {
	var out []domain.Mailbox
	for id := range ids {
		if m, ok := s.mailboxes[id]; ok {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ---- 回收站 ----

// IsInTrash 检查地址是否在全局回收站中。
func (s *Store) IsInTrash(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.deletedAliases[email]
	return ok, nil
}

// IsInDomainTrash 检查地址是否在指定域名的回收站中。
func (s *Store) IsInDomainTrash(domainID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.domainTrash[domainID][email]
	return ok, nil
}

// ListDomainTrash 列出域名回收站的全部记录。
func (s *Store) ListDomainTrash(domainID string) ([]domain.DomainDeletedAlias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DomainDeletedAlias
	for _, r := range s.domainTrash[domainID] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateDeletedAlias 直接写入全局回收站是非法操作。
func (s *Store) CreateDeletedAlias(record *domain.DeletedAlias) error {
	return domain.ErrIllegalOperation
}

// CreateDomainDeletedAlias 直接写入域名回收站是非法操作。
func (s *Store) CreateDomainDeletedAlias(record *domain.DomainDeletedAlias) error {
	return domain.ErrIllegalOperation
}

// ---- 联系人 ----

// CreateContact 创建联系人，(AliasID, WebsiteEmail) 或 ReplyEmail
// 冲突时返回 ErrContactExists。
func (s *Store) CreateContact(contact *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(contact.AliasID, contact.WebsiteEmail)
	if _, ok := s.contactByPair[key]; ok {
		return domain.ErrContactExists
	}
	if _, ok := s.contactByReply[contact.ReplyEmail]; ok {
		return domain.ErrContactExists
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}
	s.contacts[contact.ID] = contact
	s.contactByPair[key] = contact.ID
	s.contactByReply[contact.ReplyEmail] = contact.ID
	s.contactIDsByAlias[contact.AliasID] = append(s.contactIDsByAlias[contact.AliasID], contact.ID)
	return nil
}

// GetContact 根据 ID 获取联系人。
func (s *Store) GetContact(id string) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return contact, nil
}

// GetContactByAliasAndWebsite 获取别名下指定外部发件人的联系人。
func (s *Store) GetContactByAliasAndWebsite(aliasID, websiteEmail string) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.contactByPair[pairKey(aliasID, websiteEmail)]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return s.contacts[id], nil
}

// GetContactByReplyEmail 根据反向别名地址获取联系人。
func (s *Store) GetContactByReplyEmail(replyEmail string) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.contactByReply[replyEmail]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return s.contacts[id], nil
}

// ListContactsByAlias 分页列出别名的联系人，新建在前。
func (s *Store) ListContactsByAlias(aliasID string, page, pageSize int) ([]domain.Contact, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []domain.Contact
	for _, id := range s.contactIDsByAlias[aliasID] {
		if c, ok := s.contacts[id]; ok {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// UpdateContact 更新联系人信息。
func (s *Store) UpdateContact(contact *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[contact.ID]; !ok {
		return domain.ErrContactNotFound
	}
	contact.UpdatedAt = time.Now()
	s.contacts[contact.ID] = contact
	return nil
}

// DeleteContact 删除联系人。
func (s *Store) DeleteContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return domain.ErrContactNotFound
	}
	delete(s.contacts, id)
	delete(s.contactByPair, pairKey(contact.AliasID, contact.WebsiteEmail))
	delete(s.contactByReply, contact.ReplyEmail)

	ids := s.contactIDsByAlias[contact.AliasID]
	for i, cid := range ids {
		if cid == id {
			s.contactIDsByAlias[contact.AliasID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// ---- 流转记录 ----

// CreateEmailLog 追加一条流转记录。
func (s *Store) CreateEmailLog(log *domain.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	s.emailLogs = append(s.emailLogs, log)
	return nil
}

// ListEmailLogsByUser 列出用户最近的流转记录，新的在前。
func (s *Store) ListEmailLogsByUser(userID string, limit int) ([]domain.EmailLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.EmailLog
	for i := len(s.emailLogs) - 1; i >= 0; i-- {
		if s.emailLogs[i].UserID == userID {
			out = append(out, *s.emailLogs[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetUserStats 即时统计用户的活动计数。
func (s *Store) GetUserStats(userID string) (*domain.ActivityStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.ActivityStats{}
	for _, l := range s.emailLogs {
		if l.UserID == userID {
			countAction(stats, l)
		}
	}
	return stats, nil
}

// GetAliasStats 即时统计单个别名的活动计数。
func (s *Store) GetAliasStats(aliasID string) (*domain.ActivityStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.ActivityStats{}
	for _, l := range s.emailLogs {
		if l.AliasID != nil && *l.AliasID == aliasID {
			countAction(stats, l)
		}
	}
	return stats, nil
}

func countAction(stats *domain.ActivityStats, l *domain.EmailLog) {
	switch l.Action() {
	case "reply":
		stats.Reply++
	case "bounced":
		stats.Bounce++
	case "block":
		stats.Block++
	default:
		stats.Forward++
	}
}

// ---- 自定义域名 ----

// CreateCustomDomain 创建自定义域名，域名重复时返回 ErrAddressExists。
func (s *Store) CreateCustomDomain(cd *domain.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(cd.Domain)
	if _, ok := s.customDomainByName[name]; ok {
		return domain.ErrAddressExists
	}
	if cd.CreatedAt.IsZero() {
		cd.CreatedAt = time.Now()
	}
	s.customDomains[cd.ID] = cd
	s.customDomainByName[name] = cd.ID
	return nil
}

// GetCustomDomain 根据 ID 获取自定义域名。
func (s *Store) GetCustomDomain(id string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cd, ok := s.customDomains[id]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return cd, nil
}

// GetCustomDomainByName 根据域名获取自定义域名。
func (s *Store) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.customDomainByName[strings.ToLower(name)]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return s.customDomains[id], nil
}

// ListCustomDomainsByUser 列出用户的自定义域名。
func (s *Store) ListCustomDomainsByUser(userID string) ([]domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CustomDomain
	for _, cd := range s.customDomains {
		if cd.UserID == userID {
			out = append(out, *cd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateCustomDomain 更新自定义域名信息。
func (s *Store) UpdateCustomDomain(cd *domain.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.customDomains[cd.ID]
	if !ok {
		return domain.ErrDomainNotFound
	}
	if old.Domain != cd.Domain {
		delete(s.customDomainByName, strings.ToLower(old.Domain))
		s.customDomainByName[strings.ToLower(cd.Domain)] = cd.ID
	}
	cd.UpdatedAt = time.Now()
	s.customDomains[cd.ID] = cd
	return nil
}

// DeleteCustomDomain 删除域名行及其规则、邮箱关联和域名回收站。
func (s *Store) DeleteCustomDomain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cd, ok := s.customDomains[id]
	if !ok {
		return domain.ErrDomainNotFound
	}
	delete(s.customDomains, id)
	delete(s.customDomainByName, strings.ToLower(cd.Domain))
	delete(s.domainMailboxes, id)
	delete(s.domainTrash, id)
	for _, ruleID := range s.rulesByDomain[id] {
		delete(s.rules, ruleID)
		delete(s.ruleMailboxes, ruleID)
	}
	delete(s.rulesByDomain, id)
	return nil
}

// AddDomainMailbox 为自定义域名关联一个邮箱。
func (s *Store) AddDomainMailbox(domainID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customDomains[domainID]; !ok {
		return domain.ErrDomainNotFound
	}
	if _, ok := s.mailboxes[mailboxID]; !ok {
		return domain.ErrMailboxNotFound
	}
	if s.domainMailboxes[domainID] == nil {
		s.domainMailboxes[domainID] = make(map[string]bool)
	}
	s.domainMailboxes[domainID][mailboxID] = true
	return nil
}

// RemoveDomainMailbox 解除域名与邮箱的关联。
func (s *Store) RemoveDomainMailbox(domainID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.domainMailboxes[domainID], mailboxID)
	return nil
}

// ListDomainMailboxes 列出域名关联的邮箱。
func (s *Store) ListDomainMailboxes(domainID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMailboxesLocked(s.domainMailboxes[domainID]), nil
}

// CreateAutoCreateRule 创建自动创建规则。
func (s *Store) CreateAutoCreateRule(rule *domain.AutoCreateRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customDomains[rule.CustomDomainID]; !ok {
		return domain.ErrDomainNotFound
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	s.rules[rule.ID] = rule
	s.rulesByDomain[rule.CustomDomainID] = append(s.rulesByDomain[rule.CustomDomainID], rule.ID)
	return nil
}

// ListAutoCreateRules 按 Order 升序列出域名的自动创建规则。
func (s *Store) ListAutoCreateRules(domainID string) ([]domain.AutoCreateRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AutoCreateRule
	for _, id := range s.rulesByDomain[domainID] {
		if r, ok := s.rules[id]; ok {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// DeleteAutoCreateRule 删除自动创建规则。
func (s *Store) DeleteAutoCreateRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil
	}
	delete(s.rules, id)
	delete(s.ruleMailboxes, id)
	ids := s.rulesByDomain[rule.CustomDomainID]
	for i, rid := range ids {
		if rid == id {
			s.rulesByDomain[rule.CustomDomainID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// AddRuleMailbox 为自动创建规则关联一个邮箱。
func (s *Store) AddRuleMailbox(ruleID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[mailboxID]; !ok {
		return domain.ErrMailboxNotFound
	}
	if s.ruleMailboxes[ruleID] == nil {
		s.ruleMailboxes[ruleID] = make(map[string]bool)
	}
	s.ruleMailboxes[ruleID][mailboxID] = true
	return nil
}

// ListRuleMailboxes 列出规则关联的邮箱。
func (s *Store) ListRuleMailboxes(ruleID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMailboxesLocked(s.ruleMailboxes[ruleID]), nil
}

// ---- 目录 ----

// CreateDirectory 创建目录，目录名全局唯一。
func (s *Store) CreateDirectory(dir *domain.Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.directoryByName[dir.Name]; ok {
		return domain.ErrAddressExists
	}
	if dir.CreatedAt.IsZero() {
		dir.CreatedAt = time.Now()
	}
	s.directories[dir.ID] = dir
	s.directoryByName[dir.Name] = dir.ID
	return nil
}

// GetDirectory 根据 ID 获取目录。
func (s *Store) GetDirectory(id string) (*domain.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir, ok := s.directories[id]
	if !ok {
		return nil, domain.ErrDirectoryNotFound
	}
	return dir, nil
}

// GetDirectoryByName 根据目录名获取目录。
func (s *Store) GetDirectoryByName(name string) (*domain.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.directoryByName[name]
	if !ok {
		return nil, domain.ErrDirectoryNotFound
	}
	return s.directories[id], nil
}

// ListDirectoriesByUser 列出用户的目录。
func (s *Store) ListDirectoriesByUser(userID string) ([]domain.Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Directory
	for _, dir := range s.directories {
		if dir.UserID == userID {
			out = append(out, *dir)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateDirectory 更新目录信息。
func (s *Store) UpdateDirectory(dir *domain.Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.directories[dir.ID]
	if !ok {
		return domain.ErrDirectoryNotFound
	}
	if old.Name != dir.Name {
		delete(s.directoryByName, old.Name)
		s.directoryByName[dir.Name] = dir.ID
	}
	dir.UpdatedAt = time.Now()
	s.directories[dir.ID] = dir
	return nil
}

// DeleteDirectory 删除目录行及其邮箱关联。
func (s *Store) DeleteDirectory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, ok := s.directories[id]
	if !ok {
		return domain.ErrDirectoryNotFound
	}
	delete(s.directories, id)
	delete(s.directoryByName, dir.Name)
	delete(s.directoryMailboxes, id)
	return nil
}

// AddDirectoryMailbox 为目录关联一个邮箱。
func (s *Store) AddDirectoryMailbox(directoryID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.directories[directoryID]; !ok {
		return domain.ErrDirectoryNotFound
	}
	if _, ok := s.mailboxes[mailboxID]; !ok {
		return domain.ErrMailboxNotFound
	}
	if s.directoryMailboxes[directoryID] == nil {
		s.directoryMailboxes[directoryID] = make(map[string]bool)
	}
	s.directoryMailboxes[directoryID][mailboxID] = true
	return nil
}

// RemoveDirectoryMailbox 解除目录与邮箱的关联。
func (s *Store) RemoveDirectoryMailbox(directoryID, mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.directoryMailboxes[directoryID], mailboxID)
	return nil
}

// ListDirectoryMailboxes 列出目录关联的邮箱。
func (s *Store) ListDirectoryMailboxes(directoryID string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectMailboxesLocked(s.directoryMailboxes[directoryID]), nil
}

// ---- 公共域名 ----

// CreatePublicDomain 登记一个公共域名。
func (s *Store) CreatePublicDomain(pd *domain.PublicDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(pd.Domain)
	if _, ok := s.publicDomainByName[name]; ok {
		return domain.ErrAddressExists
	}
	if pd.CreatedAt.IsZero() {
		pd.CreatedAt = time.Now()
	}
	s.publicDomains[pd.ID] = pd
	s.publicDomainByName[name] = pd.ID
	s.publicDomainOrder = append(s.publicDomainOrder, pd.ID)
	return nil
}

// GetPublicDomain 根据 ID 获取公共域名。
func (s *Store) GetPublicDomain(id string) (*domain.PublicDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pd, ok := s.publicDomains[id]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return pd, nil
}

// GetPublicDomainByName 根据域名获取公共域名。
func (s *Store) GetPublicDomainByName(name string) (*domain.PublicDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.publicDomainByName[strings.ToLower(name)]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return s.publicDomains[id], nil
}

// ListPublicDomains 按登记顺序列出公共域名。
func (s *Store) ListPublicDomains() ([]domain.PublicDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PublicDomain, 0, len(s.publicDomainOrder))
	for _, id := range s.publicDomainOrder {
		if pd, ok := s.publicDomains[id]; ok {
			out = append(out, *pd)
		}
	}
	return out, nil
}

// ---- API Key ----

// CreateApiKey 创建 API Key。
func (s *Store) CreateApiKey(key *domain.ApiKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apiKeyByCode[key.Code]; ok {
		return domain.ErrAddressExists
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	s.apiKeys[key.ID] = key
	s.apiKeyByCode[key.Code] = key.ID
	return nil
}

// GetApiKeyByCode 根据密钥值获取 API Key。
func (s *Store) GetApiKeyByCode(code string) (*domain.ApiKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apiKeyByCode[code]
	if !ok {
		return nil, domain.ErrApiKeyNotFound
	}
	return s.apiKeys[id], nil
}

// ListApiKeysByUser 列出用户的 API Key。
func (s *Store) ListApiKeysByUser(userID string) ([]domain.ApiKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ApiKey
	for _, k := range s.apiKeys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteApiKey 删除 API Key。
func (s *Store) DeleteApiKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrApiKeyNotFound
	}
	delete(s.apiKeys, id)
	delete(s.apiKeyByCode, key.Code)
	return nil
}

// TouchApiKey 更新使用时间并递增使用计数。
func (s *Store) TouchApiKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrApiKeyNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	key.Times++
	return nil
}

// ---- 任务队列 ----

// EnqueueJob 入队一个后台任务。
func (s *Store) EnqueueJob(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.RunAt.IsZero() {
		job.RunAt = job.CreatedAt
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// TakePendingJobs 取出到期且未被领取的任务并标记为已领取。
func (s *Store) TakePendingJobs(now time.Time, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Job
	for _, j := range s.jobs {
		if j.Taken || j.RunAt.After(now) {
			continue
		}
		j.Taken = true
		out = append(out, *j)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- 工具方法 ----

// Close 关闭存储，内存实现无事可做。
func (s *Store) Close() error {
	return nil
}

// Health 检查存储健康状态。
func (s *Store) Health() error {
	return nil
}
