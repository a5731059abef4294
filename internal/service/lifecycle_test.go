package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmask/backend/internal/domain"
)

func TestDeleteAliasLifecycle(t *testing.T) {
	t.Run("删除后地址进入回收站", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		require.NoError(t, f.lifecycle.DeleteAlias(user.ID, alias.ID))

		inTrash, err := f.store.IsInTrash(alias.Email)
		require.NoError(t, err)
		assert.True(t, inTrash)
	})

	t.Run("删除是幂等的", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		require.NoError(t, f.lifecycle.DeleteAlias(user.ID, alias.ID))
		assert.NoError(t, f.lifecycle.DeleteAlias(user.ID, alias.ID))
	})

	t.Run("非属主不能删除", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		stranger := f.newUser(t, "stranger@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		assert.ErrorIs(t, f.lifecycle.DeleteAlias(stranger.ID, alias.ID), domain.ErrNotOwner)
	})
}

func TestDeleteMailboxCascade(t *testing.T) {
	t.Run("唯一邮箱被删时别名被回收", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		second, err := f.mailbox.Create(user.ID, "second@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, second.ID)
		require.NoError(t, err)

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		_, err = f.alias.SetMailboxes(user.ID, alias.ID, []string{second.ID})
		require.NoError(t, err)

		require.NoError(t, f.lifecycle.DeleteMailbox(user.ID, second.ID))

		inTrash, err := f.store.IsInTrash(alias.Email)
		require.NoError(t, err)
		assert.True(t, inTrash)
	})

	t.Run("多邮箱别名存活且主邮箱重排", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		second, err := f.mailbox.Create(user.ID, "second@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, second.ID)
		require.NoError(t, err)
		third, err := f.mailbox.Create(user.ID, "third@example.com")
		require.NoError(t, err)
		_, err = f.mailbox.Verify(user.ID, third.ID)
		require.NoError(t, err)

		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		_, err = f.alias.SetMailboxes(user.ID, alias.ID, []string{second.ID, third.ID})
		require.NoError(t, err)

		require.NoError(t, f.lifecycle.DeleteMailbox(user.ID, second.ID))

		survived, err := f.store.GetAlias(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, third.ID, survived.MailboxID)

		mailboxes, err := f.alias.AliasMailboxes(survived)
		require.NoError(t, err)
		require.Len(t, mailboxes, 1)
		assert.Equal(t, third.ID, mailboxes[0].ID)
	})

	t.Run("默认邮箱不允许删除", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		err := f.lifecycle.DeleteMailbox(user.ID, *user.DefaultMailboxID)
		assert.ErrorIs(t, err, domain.ErrIllegalOperation)
	})
}

func TestDeleteDirectoryCascade(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	dir, err := f.dirs.Create(user.ID, "shop")
	require.NoError(t, err)

	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)
	alias.DirectoryID = &dir.ID
	require.NoError(t, f.store.UpdateAlias(alias))

	require.NoError(t, f.lifecycle.DeleteDirectory(user.ID, dir.ID))

	inTrash, err := f.store.IsInTrash(alias.Email)
	require.NoError(t, err)
	assert.True(t, inTrash)

	_, err = f.store.GetDirectory(dir.ID)
	assert.ErrorIs(t, err, domain.ErrDirectoryNotFound)
}

func TestAliasTransfer(t *testing.T) {
	t.Run("转移保留地址并重置邮箱", func(t *testing.T) {
		f := newFixture(t)
		sender := f.newUser(t, "sender@example.com")
		receiver := f.newUser(t, "receiver@example.com")

		alias, err := f.alias.CreateRandomAlias(sender.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		token, err := f.lifecycle.BeginTransfer(sender.ID, alias.ID)
		require.NoError(t, err)

		moved, err := f.lifecycle.CompleteTransfer(token, receiver.ID)
		require.NoError(t, err)

		assert.Equal(t, alias.Email, moved.Email)
		assert.Equal(t, receiver.ID, moved.UserID)
		assert.Equal(t, *receiver.DefaultMailboxID, moved.MailboxID)
		require.NotNil(t, moved.OriginalOwnerID)
		assert.Equal(t, sender.ID, *moved.OriginalOwnerID)
		assert.Nil(t, moved.TransferToken)
	})

	t.Run("令牌只能使用一次", func(t *testing.T) {
		f := newFixture(t)
		sender := f.newUser(t, "sender@example.com")
		receiver := f.newUser(t, "receiver@example.com")

		alias, err := f.alias.CreateRandomAlias(sender.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		token, err := f.lifecycle.BeginTransfer(sender.ID, alias.ID)
		require.NoError(t, err)

		_, err = f.lifecycle.CompleteTransfer(token, receiver.ID)
		require.NoError(t, err)

		_, err = f.lifecycle.CompleteTransfer(token, receiver.ID)
		assert.ErrorIs(t, err, domain.ErrTransferTokenInvalid)
	})
}

func TestDeleteCustomDomainCascade(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	cd := f.newVerifiedDomain(t, user.ID, "corp.example")
	user.DefaultAliasCustomDomainID = &cd.ID
	require.NoError(t, f.store.UpdateUser(user))

	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)
	require.NotNil(t, alias.CustomDomainID)

	require.NoError(t, f.lifecycle.DeleteCustomDomain(user.ID, cd.ID))

	_, err = f.store.GetAlias(alias.ID)
	assert.ErrorIs(t, err, domain.ErrAliasNotFound)
	_, err = f.store.GetCustomDomain(cd.ID)
	assert.ErrorIs(t, err, domain.ErrDomainNotFound)
}
