package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "token:"

// TokenStore 基于 Redis 的一次性令牌存储。
// 后缀令牌、转移令牌等签发后只能消费一次，到期自动失效；
// 多实例部署时共享同一份令牌。
type TokenStore struct {
	client *Client
}

// NewTokenStore 创建一次性令牌存储
func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{client: client}
}

// Put 写入令牌及其载荷，ttl 到期后自动删除。
func (t *TokenStore) Put(ctx context.Context, token, payload string, ttl time.Duration) error {
	return t.client.rdb.Set(ctx, tokenKeyPrefix+token, payload, ttl).Err()
}

// Consume 原子地取出并删除令牌，返回载荷。
// 令牌不存在或已被消费时第二个返回值为 false。
func (t *TokenStore) Consume(ctx context.Context, token string) (string, bool, error) {
	payload, err := t.client.rdb.GetDel(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}
