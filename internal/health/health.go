package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailmask/backend/internal/storage"
	"mailmask/backend/internal/storage/redis"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	redis  *redis.Client
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。redisClient 为 nil 时跳过 Redis 检查。
func NewHealthChecker(store storage.Store, redisClient *redis.Client, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		redis:  redisClient,
		logger: logger,
	}

	hc.addChecks()
	return hc
}

func (hc *HealthChecker) addChecks() {
	hc.health.AddReadinessCheck("database", func() error {
		return hc.store.Health()
	})

	if hc.redis != nil {
		hc.health.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return hc.redis.Ping(ctx)
		})
	}

	// 协程数暴涨通常意味着转发队列堵住了
	hc.health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(2000))
}

// Handler 返回健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 暴露给 gin 路由的存活探针
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 暴露给 gin 路由的就绪探针
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
