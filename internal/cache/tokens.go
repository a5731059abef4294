package cache

import (
	"context"
	"sync"
	"time"
)

// TokenStore 进程内的一次性令牌存储，未配置 Redis 时使用。
// 单实例部署够用；多实例部署必须换成 Redis 实现，否则令牌
// 只在签发它的实例上可见。
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	payload   string
	expiresAt time.Time
}

// NewTokenStore 创建进程内令牌存储并启动定期清理
func NewTokenStore() *TokenStore {
	store := &TokenStore{tokens: make(map[string]tokenEntry)}
	go store.cleanupLoop()
	return store
}

// Put 写入令牌及其载荷，ttl 到期后失效。
func (t *TokenStore) Put(_ context.Context, token, payload string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tokens[token] = tokenEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Consume 取出并删除令牌，返回载荷。
// 令牌不存在、已过期或已被消费时第二个返回值为 false。
func (t *TokenStore) Consume(_ context.Context, token string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tokens[token]
	if !ok {
		return "", false, nil
	}
	delete(t.tokens, token)
	if time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.payload, true, nil
}

// cleanupLoop 定期清理过期令牌，防止未被消费的令牌堆积
func (t *TokenStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		t.mu.Lock()
		for token, entry := range t.tokens {
			if now.After(entry.expiresAt) {
				delete(t.tokens, token)
			}
		}
		t.mu.Unlock()
	}
}
