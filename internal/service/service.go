package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TokenStore 一次性令牌存储。
// 后缀令牌由 Redis 实现（internal/storage/redis）或进程内实现
// （internal/cache）提供，签发后只能消费一次。
type TokenStore interface {
	Put(ctx context.Context, token, payload string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, bool, error)
}

// secureToken 生成 n 字节的加密随机令牌（十六进制编码）。
// 后缀令牌、转移令牌和 API Key 都用它，不能用 math/rand。
func secureToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败说明系统熵源异常，无法继续
		panic(err)
	}
	return hex.EncodeToString(buf)
}
