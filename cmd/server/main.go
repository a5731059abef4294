package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/domain"
	"mailmask/backend/internal/health"
	"mailmask/backend/internal/ingest"
	"mailmask/backend/internal/logger"
	"mailmask/backend/internal/monitoring"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage"
	"mailmask/backend/internal/storage/memory"
	"mailmask/backend/internal/storage/postgres"
	"mailmask/backend/internal/storage/redis"
	httptransport "mailmask/backend/internal/transport/http"

	tokencache "mailmask/backend/internal/cache"
)

// main 启动同时包含 HTTP API 与入站 SMTP 的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting mailmask server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.Strings("alias_domains", cfg.Alias.Domains),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = postgres.NewStore(cfg.Database)
		if err != nil {
			log.Fatal("failed to initialize database storage", zap.Error(err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close() //nolint:errcheck

	// 一次性后缀令牌：有 Redis 用 Redis，否则用进程内缓存
	var tokens service.TokenStore
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient, err = redis.New(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
		tokens = redis.NewTokenStore(redisClient)
		log.Info("using redis token store", zap.String("address", cfg.Redis.Address))
	} else {
		tokens = tokencache.NewTokenStore()
		log.Info("using in-process token store")
	}

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, redisClient, log)

	// 服务层
	activityService := service.NewActivityService(store, cfg.Alias.MaxFreeAliases, log)
	aliasService := service.NewAliasService(store, cfg.Alias, tokens, activityService, log)
	lifecycleService := service.NewLifecycleService(store, log)
	contactService := service.NewContactService(store, cfg.Alias, log)
	mailboxService := service.NewMailboxService(store, log)
	domainService := service.NewCustomDomainService(store, log)
	directoryService := service.NewDirectoryService(store, log)
	userService := service.NewUserService(store, log)
	apiKeyService := service.NewApiKeyService(store, log)

	// 配置里的系统域名进入公共域名表，默认域名解析链依赖它
	seedPublicDomains(store, cfg.Alias.Domains, log)

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		AliasService:     aliasService,
		LifecycleService: lifecycleService,
		ContactService:   contactService,
		ActivityService:  activityService,
		MailboxService:   mailboxService,
		DomainService:    domainService,
		DirectoryService: directoryService,
		UserService:      userService,
		ApiKeyService:    apiKeyService,
		Store:            store,
		Metrics:          metrics,
		HealthChecker:    healthChecker,
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 入站 SMTP 服务器
	limiter := ingest.NewConnectionLimiter(cfg.SMTP.MaxConns, cfg.SMTP.MaxRate)
	smtpBackend := ingest.NewBackend(store, contactService, activityService, cfg.Alias, limiter, log)
	smtpServer := gosmtp.NewServer(smtpBackend)
	smtpServer.Addr = cfg.SMTP.BindAddr
	smtpServer.Domain = cfg.SMTP.Hostname
	smtpServer.ReadTimeout = 10 * time.Second
	smtpServer.WriteTimeout = 10 * time.Second
	smtpServer.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	smtpServer.MaxRecipients = 50

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("hostname", cfg.SMTP.Hostname),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// seedPublicDomains 把配置里的系统域名登记为公共域名。
// 已存在的跳过，失败只告警不阻断启动。
func seedPublicDomains(store storage.Store, domains []string, log *zap.Logger) {
	for _, name := range domains {
		if _, err := store.GetPublicDomainByName(name); err == nil {
			continue
		}
		if err := store.CreatePublicDomain(&domain.PublicDomain{
			ID:     uuid.NewString(),
			Domain: name,
		}); err != nil {
			log.Warn("failed to seed public domain", zap.String("domain", name), zap.Error(err))
			continue
		}
		log.Info("public domain registered", zap.String("domain", name))
	}
}
