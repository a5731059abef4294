package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmask/backend/internal/domain"
)

func TestUserRegistration(t *testing.T) {
	f := newFixture(t)

	user, err := f.users.Create("New.User@Example.COM", "s3cret-pass", "New User")
	require.NoError(t, err)

	t.Run("注册邮箱成为已验证的默认邮箱", func(t *testing.T) {
		assert.Equal(t, "new.user@example.com", user.Email)
		require.NotNil(t, user.DefaultMailboxID)

		mailbox, err := f.store.GetMailbox(*user.DefaultMailboxID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, mailbox.Email)
		assert.True(t, mailbox.Verified)
	})

	t.Run("新用户处于试用期", func(t *testing.T) {
		assert.True(t, user.InTrial(time.Now()))
	})

	t.Run("欢迎邮件任务已入队", func(t *testing.T) {
		jobs, err := f.store.TakePendingJobs(time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, domain.JobSendWelcome, jobs[0].Name)
		assert.Equal(t, user.ID, jobs[0].Payload["user_id"])
	})

	t.Run("密码校验", func(t *testing.T) {
		_, err := f.users.VerifyPassword(user.Email, "s3cret-pass")
		assert.NoError(t, err)
		_, err = f.users.VerifyPassword(user.Email, "wrong")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("邮箱重复注册被拒绝", func(t *testing.T) {
		_, err := f.users.Create(user.Email, "whatever", "")
		assert.ErrorIs(t, err, domain.ErrAddressExists)
	})
}

func TestSetDefaultAliasDomain(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	cd := f.newVerifiedDomain(t, user.ID, "corp.example")
	pd := &domain.PublicDomain{ID: "pd-1", Domain: "pub.mail"}
	require.NoError(t, f.store.CreatePublicDomain(pd))

	t.Run("设置自定义域名会清除公共域名", func(t *testing.T) {
		updated, err := f.users.SetDefaultAliasDomain(user.ID, nil, &pd.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.DefaultAliasPublicDomainID)

		updated, err = f.users.SetDefaultAliasDomain(user.ID, &cd.ID, nil)
		require.NoError(t, err)
		require.NotNil(t, updated.DefaultAliasCustomDomainID)
		assert.Nil(t, updated.DefaultAliasPublicDomainID)
	})

	t.Run("两个默认域名不能同时设置", func(t *testing.T) {
		_, err := f.users.SetDefaultAliasDomain(user.ID, &cd.ID, &pd.ID)
		assert.ErrorIs(t, err, domain.ErrIllegalOperation)
	})

	t.Run("未验证的自定义域名不能设为默认", func(t *testing.T) {
		raw, err := f.domains.Create(user.ID, "raw.example")
		require.NoError(t, err)
		_, err = f.users.SetDefaultAliasDomain(user.ID, &raw.ID, nil)
		assert.ErrorIs(t, err, domain.ErrDomainNotAllowed)
	})

	t.Run("他人的自定义域名不能设为默认", func(t *testing.T) {
		stranger := f.newUser(t, "stranger@example.com")
		_, err := f.users.SetDefaultAliasDomain(stranger.ID, &cd.ID, nil)
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("清除默认域名", func(t *testing.T) {
		updated, err := f.users.SetDefaultAliasDomain(user.ID, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, updated.DefaultAliasCustomDomainID)
		assert.Nil(t, updated.DefaultAliasPublicDomainID)
	})
}

func TestApiKeys(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")

	key, err := f.keys.Create(user.ID, "browser extension")
	require.NoError(t, err)
	require.NotEmpty(t, key.Code)

	t.Run("密钥可以换回属主", func(t *testing.T) {
		got, err := f.keys.Authenticate(key.Code)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("认证会记录使用", func(t *testing.T) {
		keys, err := f.keys.List(user.ID)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, 1, keys[0].Times)
		assert.NotNil(t, keys[0].LastUsedAt)
	})

	t.Run("错误密钥被拒绝", func(t *testing.T) {
		_, err := f.keys.Authenticate("no-such-key")
		assert.ErrorIs(t, err, domain.ErrApiKeyNotFound)
	})

	t.Run("吊销后不再可用", func(t *testing.T) {
		require.NoError(t, f.keys.Delete(user.ID, key.ID))
		_, err := f.keys.Authenticate(key.Code)
		assert.ErrorIs(t, err, domain.ErrApiKeyNotFound)
	})
}
