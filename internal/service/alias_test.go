package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmask/backend/internal/domain"
)

func TestCreateRandomAlias(t *testing.T) {
	t.Run("单词方案地址只含小写字母和连字符", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "shopping")
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^[a-z-]+@mask\.mail$`), alias.Email)
		assert.Equal(t, "shopping", alias.Note)
		assert.True(t, alias.Enabled)
		assert.Equal(t, *user.DefaultMailboxID, alias.MailboxID)

		count, err := f.store.CountAliasesByUser(user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("UUID 方案地址是 uuid4 本地部分", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeUUID, "", "")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}@mask\.mail$`), alias.Email)
	})

	t.Run("方案零值时使用用户偏好", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		user.AliasScheme = domain.AliasSchemeUUID
		require.NoError(t, f.store.UpdateUser(user))

		alias, err := f.alias.CreateRandomAlias(user.ID, 0, "", "")
		require.NoError(t, err)
		assert.Len(t, alias.Email, 36+1+len("mask.mail"))
	})

	t.Run("免费用户达到配额上限失败", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		for i := 0; i < f.cfg.MaxFreeAliases; i++ {
			_, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
			require.NoError(t, err)
		}

		_, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	})

	t.Run("终身用户不受配额限制", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		user.Lifetime = true
		require.NoError(t, f.store.UpdateUser(user))

		for i := 0; i < f.cfg.MaxFreeAliases+2; i++ {
			_, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
			require.NoError(t, err)
		}
	})

	t.Run("默认自定义域名优先于兜底域名", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		cd := f.newVerifiedDomain(t, user.ID, "corp.example")
		user.DefaultAliasCustomDomainID = &cd.ID
		require.NoError(t, f.store.UpdateUser(user))

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`@corp\.example$`), alias.Email)
		require.NotNil(t, alias.CustomDomainID)
		assert.Equal(t, cd.ID, *alias.CustomDomainID)
	})

	t.Run("未验证的默认自定义域名被跳过", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		cd, err := f.domains.Create(user.ID, "corp.example")
		require.NoError(t, err)
		user.DefaultAliasCustomDomainID = &cd.ID
		require.NoError(t, f.store.UpdateUser(user))

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`@mask\.mail$`), alias.Email)
	})

	t.Run("付费专属公共域名对免费用户静默降级", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		premium := &domain.PublicDomain{ID: "pd-1", Domain: "premium.mail", PremiumOnly: true}
		require.NoError(t, f.store.CreatePublicDomain(premium))
		user.DefaultAliasPublicDomainID = &premium.ID
		require.NoError(t, f.store.UpdateUser(user))

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		// 不报错，悄悄落到兜底域名
		assert.Regexp(t, regexp.MustCompile(`@mask\.mail$`), alias.Email)
	})

	t.Run("显式指定他人的自定义域名被拒绝", func(t *testing.T) {
		f := newFixture(t)
		owner := f.newUser(t, "owner@example.com")
		stranger := f.newUser(t, "stranger@example.com")
		f.newVerifiedDomain(t, owner.ID, "corp.example")

		_, err := f.alias.CreateRandomAlias(stranger.ID, domain.AliasSchemeWord, "corp.example", "")
		assert.ErrorIs(t, err, domain.ErrDomainNotAllowed)
	})
}

func TestCreateCustomAlias(t *testing.T) {
	ctx := context.Background()

	t.Run("前缀加签名后缀", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		options, err := f.alias.SuffixOptions(ctx, user)
		require.NoError(t, err)
		require.NotEmpty(t, options)

		alias, err := f.alias.CreateCustomAlias(ctx, user.ID, "News Letter", options[0].Token, nil, "n", "")
		require.NoError(t, err)
		// 前缀被小写并去除空白
		assert.Equal(t, "newsletter"+options[0].Suffix, alias.Email)
	})

	t.Run("令牌只能消费一次", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		options, err := f.alias.SuffixOptions(ctx, user)
		require.NoError(t, err)

		_, err = f.alias.CreateCustomAlias(ctx, user.ID, "first", options[0].Token, nil, "", "")
		require.NoError(t, err)

		_, err = f.alias.CreateCustomAlias(ctx, user.ID, "second", options[0].Token, nil, "", "")
		assert.ErrorIs(t, err, domain.ErrSuffixTokenInvalid)
	})

	t.Run("伪造令牌被拒绝", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		_, err := f.alias.CreateCustomAlias(ctx, user.ID, "evil", "forged-token", nil, "", "")
		assert.ErrorIs(t, err, domain.ErrSuffixTokenInvalid)
	})

	t.Run("清洗后为空的前缀非法", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		options, err := f.alias.SuffixOptions(ctx, user)
		require.NoError(t, err)

		_, err = f.alias.CreateCustomAlias(ctx, user.ID, "   ", options[0].Token, nil, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidPrefix)
	})

	t.Run("删除后的自定义域名地址返回 AddressInTrash", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		f.newVerifiedDomain(t, user.ID, "corp.example")

		// 已验证的自定义域名后缀是固定的 "@corp.example"，
		// 同一前缀重建会复现同一个地址
		create := func() (*domain.Alias, error) {
			options, err := f.alias.SuffixOptions(ctx, user)
			require.NoError(t, err)
			for _, opt := range options {
				if opt.Suffix == "@corp.example" {
					return f.alias.CreateCustomAlias(ctx, user.ID, "hello", opt.Token, nil, "", "")
				}
			}
			t.Fatal("custom domain suffix not offered")
			return nil, nil
		}

		alias, err := create()
		require.NoError(t, err)
		assert.Equal(t, "hello@corp.example", alias.Email)

		require.NoError(t, f.lifecycle.DeleteAlias(user.ID, alias.ID))

		_, err = create()
		assert.ErrorIs(t, err, domain.ErrAddressInTrash)
	})

	t.Run("指定的邮箱必须归属本人", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		stranger := f.newUser(t, "stranger@example.com")

		options, err := f.alias.SuffixOptions(ctx, user)
		require.NoError(t, err)

		_, err = f.alias.CreateCustomAlias(ctx, user.ID, "hi", options[0].Token, []string{*stranger.DefaultMailboxID}, "", "")
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})
}

func TestSetAliasMailboxes(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)

	t.Run("已验证邮箱成为新的主邮箱", func(t *testing.T) {
		mb, err := f.mailbox.Create(user.ID, "backup@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, mb.ID)
		require.NoError(t, err)

		updated, err := f.alias.SetMailboxes(user.ID, alias.ID, []string{mb.ID, *user.DefaultMailboxID})
		require.NoError(t, err)
		assert.Equal(t, mb.ID, updated.MailboxID)

		mailboxes, err := f.alias.AliasMailboxes(updated)
		require.NoError(t, err)
		require.Len(t, mailboxes, 2)
		assert.Equal(t, mb.ID, mailboxes[0].ID)
	})

	t.Run("未验证邮箱不能成为投递目标", func(t *testing.T) {
		unverified, err := f.mailbox.Create(user.ID, "pending@example.com")
		require.NoError(t, err)

		_, err = f.alias.SetMailboxes(user.ID, alias.ID, []string{unverified.ID})
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})

	t.Run("已停用邮箱同样被拒绝", func(t *testing.T) {
		mb, err := f.mailbox.Create(user.ID, "halted@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, mb.ID)
		require.NoError(t, err)
		mb.Disabled = true
		require.NoError(t, f.store.UpdateMailbox(mb))

		_, err = f.alias.SetMailboxes(user.ID, alias.ID, []string{mb.ID})
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})

	t.Run("创建自定义别名时同样校验", func(t *testing.T) {
		unverified, err := f.mailbox.Create(user.ID, "pending2@example.com")
		require.NoError(t, err)

		options, err := f.alias.SuffixOptions(context.Background(), user)
		require.NoError(t, err)

		_, err = f.alias.CreateCustomAlias(context.Background(), user.ID, "hi", options[0].Token, []string{unverified.ID}, "", "")
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})
}

func TestUpdateAlias(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)

	t.Run("修改备注和停用", func(t *testing.T) {
		note := "updated"
		enabled := false
		updated, err := f.alias.UpdateAlias(user.ID, alias.ID, UpdateAliasInput{Note: &note, Enabled: &enabled})
		require.NoError(t, err)
		assert.Equal(t, "updated", updated.Note)
		assert.False(t, updated.Enabled)
	})

	t.Run("非属主不能修改", func(t *testing.T) {
		stranger := f.newUser(t, "stranger@example.com")
		pinned := true
		_, err := f.alias.UpdateAlias(stranger.ID, alias.ID, UpdateAliasInput{Pinned: &pinned})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("受保护的别名不能停用", func(t *testing.T) {
		protected, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		protected.CannotBeDisabled = true
		require.NoError(t, f.store.UpdateAlias(protected))

		enabled := false
		_, err = f.alias.UpdateAlias(user.ID, protected.ID, UpdateAliasInput{Enabled: &enabled})
		assert.ErrorIs(t, err, domain.ErrIllegalOperation)
	})
}
