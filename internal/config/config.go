package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// AliasConfig 定义别名引擎的核心业务配置。
// 配额上限、后缀长度、重试次数等都是显式参数，不使用可变全局量。
type AliasConfig struct {
	// 公共域名兜底列表，第一个是全局兜底域名
	Domains []string
	// 反向别名 reply_email 使用的域名
	ReplyDomain string
	// 无法解析发件人时使用的占位回复地址
	NoReplyAddress string
	// 免费套餐别名上限
	MaxFreeAliases int
	// 自定义别名随机后缀长度
	SuffixLength int
	// 地址生成最大重试次数，耗尽视为系统性问题
	MaxGenerationAttempts int
	// 自定义别名后缀令牌有效期
	SuffixTokenTTL time.Duration
}

// SMTPConfig 定义入站 SMTP 服务器配置（只收不发）
type SMTPConfig struct {
	BindAddr string // 监听地址，格式 "host:port"，默认 ":25"
	Hostname string // HELO/EHLO 响应使用的主机名
	MaxConns int    // 最大并发连接数
	MaxRate  int    // 每秒最大新建连接数
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 彩色输出与详细堆栈
	File        string // 日志文件路径，为空时只输出到控制台
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // "mysql" 或 "postgres"，为空时使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 服务配置（一次性后缀令牌存储）
type RedisConfig struct {
	Address  string // 服务地址，留空时退化为进程内令牌存储
	Password string
	DB       int
}

// Config 是系统核心配置的根结构体
type Config struct {
	Server   ServerConfig
	Alias    AliasConfig
	SMTP     SMTPConfig
	CORS     CORSConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// Load 从环境变量和 .env 文件加载系统配置。
//
// 优先级（从高到低）：系统环境变量 → .env 文件 → 默认值。
// 环境变量前缀 SL_，例如 SL_ALIAS_DOMAINS、SL_DATABASE_DSN。
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("sl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("alias.domains", "mask.mail")
	viper.SetDefault("alias.reply_domain", "mask.mail")
	viper.SetDefault("alias.noreply_address", "noreply@mask.mail")
	viper.SetDefault("alias.max_free_aliases", 15)
	viper.SetDefault("alias.suffix_length", 5)
	viper.SetDefault("alias.max_generation_attempts", 1000)
	viper.SetDefault("alias.suffix_token_ttl", "10m")
	viper.SetDefault("smtp.bind_addr", ":25")
	viper.SetDefault("smtp.hostname", "mask.mail")
	viper.SetDefault("smtp.max_conns", 50)
	viper.SetDefault("smtp.max_rate", 20)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	domains := parseDomains(viper.GetString("alias.domains"))
	if len(domains) == 0 {
		return nil, fmt.Errorf("alias.domains must not be empty")
	}

	maxFree := viper.GetInt("alias.max_free_aliases")
	if maxFree <= 0 {
		maxFree = 15
	}

	suffixLength := viper.GetInt("alias.suffix_length")
	if suffixLength <= 0 {
		suffixLength = 5
	}

	maxAttempts := viper.GetInt("alias.max_generation_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 1000
	}

	suffixTokenTTL, err := time.ParseDuration(viper.GetString("alias.suffix_token_ttl"))
	if err != nil {
		suffixTokenTTL = 10 * time.Minute
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	replyDomain := strings.ToLower(strings.TrimSpace(viper.GetString("alias.reply_domain")))
	if replyDomain == "" {
		replyDomain = domains[0]
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Alias: AliasConfig{
			Domains:               domains,
			ReplyDomain:           replyDomain,
			NoReplyAddress:        viper.GetString("alias.noreply_address"),
			MaxFreeAliases:        maxFree,
			SuffixLength:          suffixLength,
			MaxGenerationAttempts: maxAttempts,
			SuffixTokenTTL:        suffixTokenTTL,
		},
		SMTP: SMTPConfig{
			BindAddr: viper.GetString("smtp.bind_addr"),
			Hostname: viper.GetString("smtp.hostname"),
			MaxConns: viper.GetInt("smtp.max_conns"),
			MaxRate:  viper.GetInt("smtp.max_rate"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// FallbackDomain 返回全局兜底域名
func (c *AliasConfig) FallbackDomain() string {
	return c.Domains[0]
}

// parseDomains 将逗号分隔的域名字符串解析为小写域名数组
func parseDomains(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件。
// 文件不存在时静默失败；已存在的环境变量优先级更高。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
