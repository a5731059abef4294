package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactWebsiteSendTo(t *testing.T) {
	c := &Contact{
		WebsiteEmail: "abcd@example.com",
		ReplyEmail:   "ra+token@mask.mail",
	}

	t.Run("无显示名_默认AT格式", func(t *testing.T) {
		c.Name = ""
		got := c.WebsiteSendTo(SenderFormatAT)
		assert.Equal(t, `"abcd at example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("有显示名", func(t *testing.T) {
		c.Name = "First Last"
		got := c.WebsiteSendTo(SenderFormatAT)
		assert.Equal(t, `"First Last | abcd at example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("括号a格式", func(t *testing.T) {
		c.Name = "First Last"
		got := c.WebsiteSendTo(SenderFormatA)
		assert.Equal(t, `"First Last | abcd(a)example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("完整地址格式", func(t *testing.T) {
		c.Name = ""
		got := c.WebsiteSendTo(SenderFormatFull)
		assert.Equal(t, `"abcd@example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("显示名取自FromHeader", func(t *testing.T) {
		c.Name = ""
		c.FromHeader = "First Last <abcd@example.com>"
		got := c.WebsiteSendTo(SenderFormatAT)
		assert.Equal(t, `"First Last | abcd at example.com" <ra+token@mask.mail>`, got)
		c.FromHeader = ""
	})

	t.Run("畸形FromHeader降级为空显示名", func(t *testing.T) {
		c.Name = ""
		c.FromHeader = "<<<not an address"
		got := c.WebsiteSendTo(SenderFormatAT)
		assert.Equal(t, `"abcd at example.com" <ra+token@mask.mail>`, got)
		c.FromHeader = ""
	})

	t.Run("显示名中的双引号被移除", func(t *testing.T) {
		c.Name = `Evil "Quote"`
		got := c.WebsiteSendTo(SenderFormatAT)
		assert.Equal(t, `"Evil Quote | abcd at example.com" <ra+token@mask.mail>`, got)
	})
}

func TestContactNewAddr(t *testing.T) {
	c := &Contact{
		WebsiteEmail: "first@example.com",
		ReplyEmail:   "ra+token@mask.mail",
	}

	t.Run("无显示名", func(t *testing.T) {
		c.Name = ""
		got := c.NewAddr(SenderFormatAT)
		assert.Equal(t, `"first at example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("有显示名", func(t *testing.T) {
		c.Name = "First Last"
		got := c.NewAddr(SenderFormatAT)
		assert.Equal(t, `"First Last - first at example.com" <ra+token@mask.mail>`, got)
	})

	t.Run("显示名与地址相同时不重复", func(t *testing.T) {
		c.Name = "first@example.com"
		got := c.NewAddr(SenderFormatA)
		assert.Equal(t, `"first(a)example.com" <ra+token@mask.mail>`, got)
	})
}

func TestEmailLogAction(t *testing.T) {
	assert.Equal(t, "forward", (&EmailLog{}).Action())
	assert.Equal(t, "reply", (&EmailLog{IsReply: true}).Action())
	assert.Equal(t, "block", (&EmailLog{Blocked: true}).Action())
	assert.Equal(t, "bounced", (&EmailLog{Bounced: true}).Action())
	// reply 优先于 bounce
	assert.Equal(t, "reply", (&EmailLog{IsReply: true, Bounced: true}).Action())
}
