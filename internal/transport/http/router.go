package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/health"
	"mailmask/backend/internal/middleware"
	"mailmask/backend/internal/monitoring"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	aliases   *service.AliasService
	lifecycle *service.LifecycleService
	contacts  *service.ContactService
	activity  *service.ActivityService
	mailboxes *service.MailboxService
	domains   *service.CustomDomainService
	dirs      *service.DirectoryService
	users     *service.UserService
	keys      *service.ApiKeyService
	store     storage.Store
	cfg       config.AliasConfig
	log       *zap.Logger
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	AliasService     *service.AliasService
	LifecycleService *service.LifecycleService
	ContactService   *service.ContactService
	ActivityService  *service.ActivityService
	MailboxService   *service.MailboxService
	DomainService    *service.CustomDomainService
	DirectoryService *service.DirectoryService
	UserService      *service.UserService
	ApiKeyService    *service.ApiKeyService
	Store            storage.Store
	Metrics          *monitoring.Metrics
	HealthChecker    *health.HealthChecker
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1MB，纯 JSON API

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mm.HTTPMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authentication"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时必须关闭凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		aliases:   deps.AliasService,
		lifecycle: deps.LifecycleService,
		contacts:  deps.ContactService,
		activity:  deps.ActivityService,
		mailboxes: deps.MailboxService,
		domains:   deps.DomainService,
		dirs:      deps.DirectoryService,
		users:     deps.UserService,
		keys:      deps.ApiKeyService,
		store:     deps.Store,
		cfg:       deps.Config.Alias,
		log:       deps.Logger,
	}

	apiKeyAuth := middleware.NewApiKeyAuth(deps.ApiKeyService)

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Public Routes（无需认证的公开API） ==========
		publicRoutes := v1.Group("/public")
		{
			publicRoutes.GET("/domains", handler.listPublicDomains)
		}

		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", handler.register)
			authRoutes.POST("/login", handler.login)
		}

		// ========== Authenticated Routes ==========
		api := v1.Group("")
		api.Use(apiKeyAuth.RequireApiKey())
		{
			// 别名
			api.GET("/aliases", handler.listAliases)
			api.POST("/aliases", handler.createRandomAlias)
			api.GET("/aliases/options", handler.aliasOptions)
			api.POST("/aliases/custom", handler.createCustomAlias)
			api.POST("/aliases/transfer", handler.completeAliasTransfer)
			api.GET("/aliases/:id", handler.getAlias)
			api.PATCH("/aliases/:id", handler.updateAlias)
			api.DELETE("/aliases/:id", handler.deleteAlias)
			api.PUT("/aliases/:id/mailboxes", handler.setAliasMailboxes)
			api.GET("/aliases/:id/activities", handler.getAliasStats)
			api.POST("/aliases/:id/transfer", handler.beginAliasTransfer)

			// 联系人（反向别名）
			api.GET("/aliases/:id/contacts", handler.listContacts)
			api.POST("/aliases/:id/contacts", handler.createContact)
			api.DELETE("/contacts/:contactId", handler.deleteContact)

			// 邮箱
			api.GET("/mailboxes", handler.listMailboxes)
			api.POST("/mailboxes", handler.createMailbox)
			api.PATCH("/mailboxes/:id", handler.updateMailbox)
			api.DELETE("/mailboxes/:id", handler.deleteMailbox)
			api.POST("/mailboxes/:id/verify", handler.verifyMailbox)
			api.POST("/mailboxes/:id/default", handler.setDefaultMailbox)

			// 自定义域名
			api.GET("/custom_domains", handler.listCustomDomains)
			api.POST("/custom_domains", handler.createCustomDomain)
			api.GET("/custom_domains/:id", handler.getCustomDomain)
			api.PATCH("/custom_domains/:id", handler.updateCustomDomain)
			api.DELETE("/custom_domains/:id", handler.deleteCustomDomain)
			api.PUT("/custom_domains/:id/mailboxes", handler.setDomainMailboxes)
			api.GET("/custom_domains/:id/rules", handler.listDomainRules)
			api.POST("/custom_domains/:id/rules", handler.createDomainRule)
			api.DELETE("/custom_domains/:id/rules/:ruleId", handler.deleteDomainRule)
			api.GET("/custom_domains/:id/trash", handler.listDomainTrash)

			// 目录
			api.GET("/directories", handler.listDirectories)
			api.POST("/directories", handler.createDirectory)
			api.PATCH("/directories/:id", handler.updateDirectory)
			api.DELETE("/directories/:id", handler.deleteDirectory)
			api.PUT("/directories/:id/mailboxes", handler.setDirectoryMailboxes)

			// 用户
			api.GET("/user", handler.getUser)
			api.PATCH("/user/settings", handler.updateSettings)
			api.PUT("/user/default_alias_domain", handler.setDefaultAliasDomain)
			api.GET("/user/stats", handler.getUserStats)
			api.GET("/user/activities", handler.listActivities)
			api.DELETE("/user", handler.requestAccountDeletion)

			// API Key
			api.GET("/api_keys", handler.listApiKeys)
			api.POST("/api_keys", handler.createApiKey)
			api.DELETE("/api_keys/:id", handler.deleteApiKey)
		}
	}

	return router
}
