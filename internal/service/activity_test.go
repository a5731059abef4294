package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmask/backend/internal/domain"
)

func TestCanCreateNewAlias(t *testing.T) {
	t.Run("免费用户受配额边界约束", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")

		// 上限减一时还能创建
		for i := 0; i < f.cfg.MaxFreeAliases-1; i++ {
			_, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
			require.NoError(t, err)
		}
		ok, err := f.activity.CanCreateNewAlias(user)
		require.NoError(t, err)
		assert.True(t, ok)

		// 达到上限后不能
		_, err = f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
		require.NoError(t, err)
		ok, err = f.activity.CanCreateNewAlias(user)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("订阅有效期内不限额", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		require.NoError(t, f.users.SetSubscription(user.ID, "paddle", time.Now().Add(30*24*time.Hour)))

		assert.True(t, f.activity.Entitled(user))
		assert.Equal(t, -1, f.activity.AliasLimit(user))
	})

	t.Run("过期订阅不再生效", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		require.NoError(t, f.users.SetSubscription(user.ID, "apple", time.Now().Add(-time.Hour)))

		assert.False(t, f.activity.Entitled(user))
		assert.Equal(t, f.cfg.MaxFreeAliases, f.activity.AliasLimit(user))
	})

	t.Run("试用期内视同付费", func(t *testing.T) {
		f := newFixture(t)
		user := f.newUser(t, "owner@example.com")
		trialEnd := time.Now().Add(24 * time.Hour)
		user.TrialEnd = &trialEnd
		require.NoError(t, f.store.UpdateUser(user))

		assert.True(t, f.activity.Entitled(user))
	})
}

func TestActivityRecording(t *testing.T) {
	f := newFixture(t)
	user := f.newUser(t, "owner@example.com")
	alias, err := f.alias.CreateRandomAlias(user.ID, domain.AliasSchemeWord, "", "")
	require.NoError(t, err)
	contact, err := f.contact.GetOrCreate(alias, "sender@shop.com", "", "")
	require.NoError(t, err)

	record := func(mutate func(l *domain.EmailLog)) {
		entry := &domain.EmailLog{
			UserID:    user.ID,
			ContactID: contact.ID,
			AliasID:   &alias.ID,
		}
		mutate(entry)
		require.NoError(t, f.activity.Record(entry))
	}

	record(func(l *domain.EmailLog) {})
	record(func(l *domain.EmailLog) {})
	record(func(l *domain.EmailLog) { l.IsReply = true })
	record(func(l *domain.EmailLog) { l.Blocked = true })

	stats, err := f.activity.GetUserStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Forward)
	assert.Equal(t, int64(1), stats.Reply)
	assert.Equal(t, int64(1), stats.Block)
	assert.Equal(t, int64(0), stats.Bounce)

	recent, err := f.activity.ListRecent(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}
