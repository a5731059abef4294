package service

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/storage"
)

func TestGetOrCreateContact(t *testing.T) {
	t.Run("首次创建生成反向别名地址", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		contact, err := f.contact.GetOrCreate(alias, "Sender@Shop.COM ", "Shop <sender@shop.com>", "bounce@shop.com")
		require.NoError(t, err)

		assert.Equal(t, "sender@shop.com", contact.WebsiteEmail)
		assert.Equal(t, "Shop", contact.Name)
		assert.True(t, strings.HasPrefix(contact.ReplyEmail, "ra+"))
		assert.True(t, strings.HasSuffix(contact.ReplyEmail, "@mask.mail"))
		assert.False(t, contact.InvalidEmail)
	})

	t.Run("重复调用返回同一条记录", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		first, err := f.contact.GetOrCreate(alias, "sender@shop.com", "", "")
		require.NoError(t, err)
		second, err := f.contact.GetOrCreate(alias, "SENDER@shop.com", "", "")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.ReplyEmail, second.ReplyEmail)
	})

	t.Run("不同别名下同一发件人各有记录", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		a1, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		a2, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		c1, err := f.contact.GetOrCreate(a1, "sender@shop.com", "", "")
		require.NoError(t, err)
		c2, err := f.contact.GetOrCreate(a2, "sender@shop.com", "", "")
		require.NoError(t, err)

		assert.NotEqual(t, c1.ID, c2.ID)
		assert.NotEqual(t, c1.ReplyEmail, c2.ReplyEmail)
	})

	t.Run("无法解析的发件人标记为不可回复", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		contact, err := f.contact.GetOrCreate(alias, "not an address", "garbage <<>>", "")
		require.NoError(t, err)
		assert.True(t, contact.InvalidEmail)
		// 显示名解析失败降级为空，不报错
		assert.Empty(t, contact.Name)
	})
}

func TestGetOrCreateContactConcurrent(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)

	// 同一发件人的并发首封邮件：唯一约束裁决出一行，
	// 输家重读赢家那一行，所有调用者拿到同一个 reply_email
	const workers = 16
	results := make([]*domain.Contact, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.contact.GetOrCreate(alias, "sender@shop.com", "Shop <sender@shop.com>", "sender@shop.com")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, results[0].ReplyEmail, results[i].ReplyEmail)
	}

	_, total, err := f.contact.ListContacts(user.ID, alias.ID, 1, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

// replyCollisionStore 让前 collisions 次联系人写入撞唯一索引，
// 模拟 reply_email 随机令牌撞号
type replyCollisionStore struct {
	storage.Store
	collisions int
}

func (s *replyCollisionStore) CreateContact(contact *domain.Contact) error {
	if s.collisions > 0 {
		s.collisions--
		return domain.ErrContactExists
	}
	return s.Store.CreateContact(contact)
}

func TestGetOrCreateContactReplyCollision(t *testing.T) {
	t.Run("撞号后换令牌重试成功", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		svc := NewContactService(&replyCollisionStore{Store: f.store, collisions: 2}, f.cfg, zap.NewNop())
		contact, err := svc.GetOrCreate(alias, "sender@shop.com", "", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(contact.ReplyEmail, "ra+"))

		stored, err := f.store.GetContactByAliasAndWebsite(alias.ID, "sender@shop.com")
		require.NoError(t, err)
		assert.Equal(t, contact.ID, stored.ID)
	})

	t.Run("重试耗尽返回生成失败", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)

		svc := NewContactService(&replyCollisionStore{Store: f.store, collisions: insertRetryLimit}, f.cfg, zap.NewNop())
		_, err = svc.GetOrCreate(alias, "sender@shop.com", "", "")
		assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
	})
}

func TestContactRendering(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)

	contact, err := f.contact.GetOrCreate(alias, "a@b.com", "", "")
	require.NoError(t, err)

	t.Run("AT 格式混淆 @ 符号", func(t *testing.T) {
		user.SenderFormat = domain.SenderFormatAT
		rendered := f.contact.RenderForReply(contact, user)
		assert.Equal(t, `"a at b.com" <`+contact.ReplyEmail+`>`, rendered)
	})

	t.Run("Full 格式原样保留地址", func(t *testing.T) {
		user.SenderFormat = domain.SenderFormatFull
		rendered := f.contact.RenderForReply(contact, user)
		assert.Equal(t, `"a@b.com" <`+contact.ReplyEmail+`>`, rendered)
	})
}

func TestDeleteContact(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	stranger := f.newUser(t, "stranger@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)
	contact, err := f.contact.GetOrCreate(alias, "a@b.com", "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.contact.DeleteContact(stranger.ID, contact.ID), domain.ErrNotOwner)
	require.NoError(t, f.contact.DeleteContact(user.ID, contact.ID))

	_, err = f.contact.GetByReplyEmail(contact.ReplyEmail)
	assert.ErrorIs(t, err, domain.ErrContactNotFound)
}
