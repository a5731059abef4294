package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailmask/backend/internal/cache"
	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage/memory"
)

// fixture 测试用的全套服务，跑在内存存储上
type fixture struct {
	store     *memory.Store
	cfg       config.AliasConfig
	alias     *AliasService
	lifecycle *LifecycleService
	contact   *ContactService
	activity  *ActivityService
	mailbox   *MailboxService
	domains   *CustomDomainService
	dirs      *DirectoryService
	users     *UserService
	keys      *ApiKeyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	log := zap.NewNop()
	cfg := config.AliasConfig{
		Domains:               []string{"mask.mail"},
		ReplyDomain:           "mask.mail",
		NoReplyAddress:        "noreply@mask.mail",
		MaxFreeAliases:        3,
		SuffixLength:          5,
		MaxGenerationAttempts: 1000,
		SuffixTokenTTL:        time.Minute,
	}
	tokens := cache.NewTokenStore()
	activity := NewActivityService(store, cfg.MaxFreeAliases, log)

	return &fixture{
		store:     store,
		cfg:       cfg,
		alias:     NewAliasService(store, cfg, tokens, activity, log),
		lifecycle: NewLifecycleService(store, log),
		contact:   NewContactService(store, cfg, log),
		activity:  activity,
		mailbox:   NewMailboxService(store, log),
		domains:   NewCustomDomainService(store, log),
		dirs:      NewDirectoryService(store, log),
		users:     NewUserService(store, log),
		keys:      NewApiKeyService(store, log),
	}
}

// newUser 造一个带已验证默认邮箱的免费用户
func (f *fixture) newUser(t *testing.T, email string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		AliasScheme: domain.AliasSchemeWord,
	}
	require.NoError(t, f.store.CreateUser(user))

	mailbox := &domain.Mailbox{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Email:    email,
		Verified: true,
	}
	require.NoError(t, f.store.CreateMailbox(mailbox))
	user.DefaultMailboxID = &mailbox.ID
	require.NoError(t, f.store.UpdateUser(user))
	return user
}

// newVerifiedDomain 给用户挂一个已验证的自定义域名
func (f *fixture) newVerifiedDomain(t *testing.T, userID, name string) *domain.CustomDomain {
	t.Helper()

	cd, err := f.domains.Create(userID, name)
	require.NoError(t, err)
	cd, err = f.domains.MarkVerified(userID, cd.ID, true)
	require.NoError(t, err)
	return cd
}
