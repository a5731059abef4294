package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailmask/backend/internal/cache"
	"mailmask/backend/internal/config"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage/memory"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := zap.NewNop()
	cfg := &config.Config{
		Alias: config.AliasConfig{
			Domains:               []string{"mask.mail"},
			ReplyDomain:           "mask.mail",
			NoReplyAddress:        "noreply@mask.mail",
			MaxFreeAliases:        2,
			SuffixLength:          5,
			MaxGenerationAttempts: 1000,
			SuffixTokenTTL:        time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	tokens := cache.NewTokenStore()
	activity := service.NewActivityService(store, cfg.Alias.MaxFreeAliases, log)

	router := NewRouter(RouterDependencies{
		Config:           cfg,
		AliasService:     service.NewAliasService(store, cfg.Alias, tokens, activity, log),
		LifecycleService: service.NewLifecycleService(store, log),
		ContactService:   service.NewContactService(store, cfg.Alias, log),
		ActivityService:  activity,
		MailboxService:   service.NewMailboxService(store, log),
		DomainService:    service.NewCustomDomainService(store, log),
		DirectoryService: service.NewDirectoryService(store, log),
		UserService:      service.NewUserService(store, log),
		ApiKeyService:    service.NewApiKeyService(store, log),
		Store:            store,
		Logger:           log,
	})
	return router, store
}

// expireTrial 把用户的试用期调成已结束，让免费配额生效
func expireTrial(t *testing.T, store *memory.Store, email string) {
	t.Helper()

	user, err := store.GetUserByEmail(email)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	user.TrialEnd = &past
	require.NoError(t, store.UpdateUser(user))
}

func doJSON(t *testing.T, router *gin.Engine, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authentication", apiKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Code int                    `json:"code"`
		Msg  string                 `json:"msg"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

// registerAndLogin 注册用户并返回 API Key
func registerAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	apiKey, _ := data["apiKey"].(string)
	require.NotEmpty(t, apiKey)
	return apiKey
}

func TestAuthFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("注册登录换取APIKey", func(t *testing.T) {
		apiKey := registerAndLogin(t, router, "alice@example.com")

		w := doJSON(t, router, http.MethodGet, "/v1/user", apiKey, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "alice@example.com", data["email"])
	})

	t.Run("错误密码返回401", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", gin.H{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("无APIKey访问受保护路由返回401", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/aliases", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAliasAPI(t *testing.T) {
	router, store := newTestRouter(t)
	apiKey := registerAndLogin(t, router, "bob@example.com")
	expireTrial(t, store, "bob@example.com")

	t.Run("创建随机别名", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/aliases", apiKey, gin.H{
			"mode": "word",
			"note": "newsletter",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Contains(t, data["email"], "@mask.mail")
	})

	t.Run("超出配额返回400", func(t *testing.T) {
		// 免费配额是 2，第一个已创建
		w := doJSON(t, router, http.MethodPost, "/v1/aliases", apiKey, gin.H{"mode": "uuid"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, http.MethodPost, "/v1/aliases", apiKey, gin.H{"mode": "uuid"})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("列表分页", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/aliases?page=1&pageSize=10", apiKey, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(2), data["total"])
	})

	t.Run("后缀选项带一次性令牌", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/aliases/options", apiKey, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		suffixes, ok := data["suffixes"].([]interface{})
		require.True(t, ok)
		require.NotEmpty(t, suffixes)
		first := suffixes[0].(map[string]interface{})
		assert.NotEmpty(t, first["token"])
	})
}

func TestPublicAndHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("公开域名列表无需认证", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/public/domains", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Contains(t, data["domains"], "mask.mail")
	})

	t.Run("健康检查", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
