package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmask/backend/internal/domain"
)

func TestDomainMailboxAssignment(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	cd := f.newVerifiedDomain(t, user.ID, "corp.example")

	t.Run("已验证邮箱可以挂到域名", func(t *testing.T) {
		mb, err := f.mailbox.Create(user.ID, "backup@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, mb.ID)
		require.NoError(t, err)

		require.NoError(t, f.domains.SetMailboxes(user.ID, cd.ID, []string{mb.ID}))

		mailboxes, err := f.store.ListDomainMailboxes(cd.ID)
		require.NoError(t, err)
		require.Len(t, mailboxes, 1)
		assert.Equal(t, mb.ID, mailboxes[0].ID)
	})

	t.Run("未验证邮箱不能挂到域名", func(t *testing.T) {
		unverified, err := f.mailbox.Create(user.ID, "pending@example.com")
		require.NoError(t, err)

		err = f.domains.SetMailboxes(user.ID, cd.ID, []string{unverified.ID})
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})

	t.Run("自动创建规则拒绝未验证邮箱", func(t *testing.T) {
		unverified, err := f.mailbox.Create(user.ID, "pending2@example.com")
		require.NoError(t, err)

		_, err = f.domains.CreateRule(user.ID, cd.ID, "^invoice-", 0, []string{unverified.ID})
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})

	t.Run("规则拒绝他人的邮箱", func(t *testing.T) {
		stranger := f.newUser(t, "stranger@example.com")

		_, err := f.domains.CreateRule(user.ID, cd.ID, "^invoice-", 0, []string{*stranger.DefaultMailboxID})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})
}

func TestDirectoryMailboxAssignment(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	dir, err := f.dirs.Create(user.ID, "work")
	require.NoError(t, err)

	t.Run("未验证邮箱不能挂到目录", func(t *testing.T) {
		unverified, err := f.mailbox.Create(user.ID, "pending@example.com")
		require.NoError(t, err)

		err = f.dirs.SetMailboxes(user.ID, dir.ID, []string{unverified.ID})
		assert.ErrorIs(t, err, domain.ErrMailboxNotVerified)
	})
}
