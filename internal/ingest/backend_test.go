package ingest

import (
	"strings"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage/memory"
)

// fixture SMTP 入站测试环境，跑在内存存储上
type fixture struct {
	store    *memory.Store
	backend  *Backend
	contacts *service.ContactService
	activity *service.ActivityService
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
	contacts := service.NewContactService(store, cfg, log)
	activity := service.NewActivityService(store, cfg.MaxFreeAliases, log)

	return &fixture{
		store:    store,
		backend:  NewBackend(store, contacts, activity, cfg, nil, log),
		contacts: contacts,
		activity: activity,
	}
}

func (f *fixture) newSession(t *testing.T) *session {
	t.Helper()
	sess, err := f.backend.NewSession(nil)
	require.NoError(t, err)
	return sess.(*session)
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

func (f *fixture) newAlias(t *testing.T, user *domain.User, email string) *domain.Alias {
	t.Helper()

	alias := &domain.Alias{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     email,
		Enabled:   true,
		MailboxID: *user.DefaultMailboxID,
	}
	require.NoError(t, f.store.CreateAlias(alias, -1))
	return alias
}

func (f *fixture) newVerifiedDomain(t *testing.T, userID, name string) *domain.CustomDomain {
	t.Helper()

	cd := &domain.CustomDomain{
		ID:       uuid.NewString(),
		UserID:   userID,
		Domain:   name,
		Verified: true,
	}
	require.NoError(t, f.store.CreateCustomDomain(cd))
	return cd
}

func smtpCode(t *testing.T, err error) int {
	t.Helper()
	smtpErr, ok := err.(*gosmtp.SMTPError)
	require.True(t, ok, "expected SMTP error, got %v", err)
	return smtpErr.Code
}

func TestRcptResolution(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	f.newAlias(t, user, "news@mask.mail")

	t.Run("已存在的别名被接受", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt("<News@Mask.Mail>", nil))
		require.Len(t, sess.recipients, 1)
		assert.Equal(t, "news@mask.mail", sess.recipients[0].address)
		assert.NotNil(t, sess.recipients[0].alias)
	})

	t.Run("非法地址返回501", func(t *testing.T) {
		sess := f.newSession(t)
		err := sess.Rcpt("not-an-address", nil)
		assert.Equal(t, 501, smtpCode(t, err))
	})

	t.Run("未托管域名拒绝中继", func(t *testing.T) {
		sess := f.newSession(t)
		err := sess.Rcpt("someone@elsewhere.net", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})

	t.Run("系统域名上不存在的本地部分返回550", func(t *testing.T) {
		sess := f.newSession(t)
		err := sess.Rcpt("ghost@mask.mail", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})

	t.Run("反向别名地址解析到联系人", func(t *testing.T) {
		alias, err := f.store.GetAliasByEmail("news@mask.mail")
		require.NoError(t, err)
		contact, err := f.contacts.GetOrCreate(alias, "sender@shop.com", "Shop <sender@shop.com>", "sender@shop.com")
		require.NoError(t, err)

		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt(contact.ReplyEmail, nil))
		require.Len(t, sess.recipients, 1)
		assert.NotNil(t, sess.recipients[0].contact)
	})

	t.Run("不存在的反向别名返回550", func(t *testing.T) {
		sess := f.newSession(t)
		err := sess.Rcpt("ra+deadbeef@mask.mail", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})
}

func TestAutoCreateOnCustomDomain(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")

	t.Run("catch-all即时创建别名", func(t *testing.T) {
		cd := f.newVerifiedDomain(t, user.ID, "corp.example")
		cd.CatchAll = true
		require.NoError(t, f.store.UpdateCustomDomain(cd))

		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt("anything@corp.example", nil))

		alias, err := f.store.GetAliasByEmail("anything@corp.example")
		require.NoError(t, err)
		assert.True(t, alias.AutomaticCreation)
		assert.Equal(t, user.ID, alias.UserID)
		require.NotNil(t, alias.CustomDomainID)
		assert.Equal(t, cd.ID, *alias.CustomDomainID)
	})

	t.Run("自动创建规则优先于catch-all并使用规则邮箱", func(t *testing.T) {
		cd := f.newVerifiedDomain(t, user.ID, "rules.example")
		cd.CatchAll = true
		require.NoError(t, f.store.UpdateCustomDomain(cd))

		ruleMailbox := &domain.Mailbox{
			ID:       uuid.NewString(),
			UserID:   user.ID,
			Email:    "billing@example.com",
			Verified: true,
		}
		require.NoError(t, f.store.CreateMailbox(ruleMailbox))

		rule := &domain.AutoCreateRule{
			ID:             uuid.NewString(),
			CustomDomainID: cd.ID,
			Regex:          `^invoice-`,
			Order:          0,
		}
		require.NoError(t, f.store.CreateAutoCreateRule(rule))
		require.NoError(t, f.store.AddRuleMailbox(rule.ID, ruleMailbox.ID))

		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt("invoice-2024@rules.example", nil))

		alias, err := f.store.GetAliasByEmail("invoice-2024@rules.example")
		require.NoError(t, err)
		assert.Equal(t, ruleMailbox.ID, alias.MailboxID)
	})

	t.Run("无规则且未开catch-all时拒收", func(t *testing.T) {
		f.newVerifiedDomain(t, user.ID, "closed.example")

		sess := f.newSession(t)
		err := sess.Rcpt("anything@closed.example", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})

	t.Run("未验证域名拒绝中继", func(t *testing.T) {
		cd := f.newVerifiedDomain(t, user.ID, "pending.example")
		cd.Verified = false
		require.NoError(t, f.store.UpdateCustomDomain(cd))

		sess := f.newSession(t)
		err := sess.Rcpt("anything@pending.example", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})

	t.Run("回收站里的地址不会被catch-all复活", func(t *testing.T) {
		cd := f.newVerifiedDomain(t, user.ID, "trash.example")
		cd.CatchAll = true
		require.NoError(t, f.store.UpdateCustomDomain(cd))

		alias := &domain.Alias{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			Email:          "burned@trash.example",
			Enabled:        true,
			MailboxID:      *user.DefaultMailboxID,
			CustomDomainID: &cd.ID,
		}
		require.NoError(t, f.store.CreateAlias(alias, -1))
		require.NoError(t, f.store.DeleteAlias(alias))

		sess := f.newSession(t)
		err := sess.Rcpt("burned@trash.example", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})
}

func TestDirectoryOnTheFlyCreation(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")

	dir := &domain.Directory{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Name:   "work",
	}
	require.NoError(t, f.store.CreateDirectory(dir))

	t.Run("目录地址即时创建别名", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt("work+github@mask.mail", nil))

		alias, err := f.store.GetAliasByEmail("work+github@mask.mail")
		require.NoError(t, err)
		assert.True(t, alias.AutomaticCreation)
		require.NotNil(t, alias.DirectoryID)
		assert.Equal(t, dir.ID, *alias.DirectoryID)
	})

	t.Run("井号和斜杠分隔符同样有效", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Rcpt("work#slack@mask.mail", nil))
		require.NoError(t, sess.Rcpt("work/jira@mask.mail", nil))
	})

	t.Run("停用的目录不再即时创建", func(t *testing.T) {
		dir.Disabled = true
		require.NoError(t, f.store.UpdateDirectory(dir))

		sess := f.newSession(t)
		err := sess.Rcpt("work+new@mask.mail", nil)
		assert.Equal(t, 550, smtpCode(t, err))

		// 已有别名不受目录停用影响
		sess2 := f.newSession(t)
		require.NoError(t, sess2.Rcpt("work+github@mask.mail", nil))
	})

	t.Run("未知目录名返回550", func(t *testing.T) {
		sess := f.newSession(t)
		err := sess.Rcpt("nobody+tag@mask.mail", nil)
		assert.Equal(t, 550, smtpCode(t, err))
	})
}

const rawMessage = "From: Shop <sender@shop.com>\r\nSubject: hello\r\n\r\nbody\r\n"

func TestDataForward(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias := f.newAlias(t, user, "news@mask.mail")

	t.Run("入站邮件记账并入队转发任务", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Mail("sender@shop.com", nil))
		require.NoError(t, sess.Rcpt("news@mask.mail", nil))
		require.NoError(t, sess.Data(strings.NewReader(rawMessage)))

		// 联系人被创建，显示名取自 From 头
		contact, err := f.store.GetContactByAliasAndWebsite(alias.ID, "sender@shop.com")
		require.NoError(t, err)
		assert.Equal(t, "Shop", contact.Name)

		stats, err := f.store.GetAliasStats(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Forward)

		jobs, err := f.store.TakePendingJobs(time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, domain.JobForwardEmail, jobs[0].Name)
		assert.Equal(t, alias.ID, jobs[0].Payload["alias_id"])
		assert.Equal(t, "forward", jobs[0].Payload["direction"])
	})

	t.Run("停用别名拦截且不入队", func(t *testing.T) {
		alias.Enabled = false
		require.NoError(t, f.store.UpdateAlias(alias))

		sess := f.newSession(t)
		require.NoError(t, sess.Mail("sender@shop.com", nil))
		require.NoError(t, sess.Rcpt("news@mask.mail", nil))
		require.NoError(t, sess.Data(strings.NewReader(rawMessage)))

		stats, err := f.store.GetAliasStats(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Block)

		jobs, err := f.store.TakePendingJobs(time.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestDataReply(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias := f.newAlias(t, user, "news@mask.mail")

	contact, err := f.contacts.GetOrCreate(alias, "sender@shop.com", "Shop <sender@shop.com>", "sender@shop.com")
	require.NoError(t, err)

	t.Run("别名邮箱可以通过反向别名回复", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Mail("owner@example.com", nil))
		require.NoError(t, sess.Rcpt(contact.ReplyEmail, nil))
		require.NoError(t, sess.Data(strings.NewReader(rawMessage)))

		stats, err := f.store.GetAliasStats(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Reply)

		jobs, err := f.store.TakePendingJobs(time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "reply", jobs[0].Payload["direction"])
		assert.Equal(t, "sender@shop.com", jobs[0].Payload["to"])
	})

	t.Run("陌生发件人不能使用反向别名", func(t *testing.T) {
		sess := f.newSession(t)
		require.NoError(t, sess.Mail("intruder@evil.com", nil))
		require.NoError(t, sess.Rcpt(contact.ReplyEmail, nil))

		err := sess.Data(strings.NewReader(rawMessage))
		assert.Equal(t, 550, smtpCode(t, err))

		jobs, err2 := f.store.TakePendingJobs(time.Now(), 10)
		require.NoError(t, err2)
		assert.Empty(t, jobs)
	})
}

func TestConnectionLimiter(t *testing.T) {
	t.Run("超过并发上限后拒绝", func(t *testing.T) {
		l := NewConnectionLimiter(2, 100)
		assert.True(t, l.Acquire())
		assert.True(t, l.Acquire())
		assert.False(t, l.Acquire())

		l.Release()
		assert.True(t, l.Acquire())
		assert.Equal(t, 2, l.Current())
	})

	t.Run("速率限制生效", func(t *testing.T) {
		l := NewConnectionLimiter(100, 1)
		assert.True(t, l.Acquire())
		assert.False(t, l.Acquire())
	})
}
