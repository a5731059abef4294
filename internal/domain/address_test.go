package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeEmail(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"小写化", "ABC@Example.COM", "abc@example.com"},
		{"去首尾空白", "  a@b.com  ", "a@b.com"},
		{"去内部空格", "a b@c.com", "ab@c.com"},
		{"去换行", "a@b.com\n", "a@b.com"},
		{"空字符串", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeEmail(tc.input))
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.com"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("<>"))
}

func TestParseFullAddress(t *testing.T) {
	t.Run("带显示名", func(t *testing.T) {
		name, email := ParseFullAddress("AB CD <ab@cd.com>")
		assert.Equal(t, "AB CD", name)
		assert.Equal(t, "ab@cd.com", email)
	})

	t.Run("纯地址", func(t *testing.T) {
		name, email := ParseFullAddress("ab@cd.com")
		assert.Equal(t, "", name)
		assert.Equal(t, "ab@cd.com", email)
	})

	t.Run("畸形头返回空值", func(t *testing.T) {
		name, email := ParseFullAddress("<<<broken")
		assert.Equal(t, "", name)
		assert.Equal(t, "", email)
	})
}

func TestSplitAddress(t *testing.T) {
	local, dom, ok := SplitAddress("user@example.org")
	assert.True(t, ok)
	assert.Equal(t, "user", local)
	assert.Equal(t, "example.org", dom)

	_, _, ok = SplitAddress("no-at-sign")
	assert.False(t, ok)

	_, _, ok = SplitAddress("@example.org")
	assert.False(t, ok)
}
