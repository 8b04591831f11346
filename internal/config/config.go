// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Search    SearchConfig    `mapstructure:"search"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
// Enabled 为 false 时，帖子向量化任务在进程内异步执行。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SearchConfig 存储语义搜索的调优参数。
type SearchConfig struct {
	DefaultLimit       int           `mapstructure:"default_limit"`
	MaxLimit           int           `mapstructure:"max_limit"`
	CandidateLimit     int           `mapstructure:"candidate_limit"`
	RelevanceThreshold float64       `mapstructure:"relevance_threshold"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries    int           `mapstructure:"cache_max_entries"`
	CacheBackend       string        `mapstructure:"cache_backend"` // memory | redis
	EmbedWorkers       int           `mapstructure:"embed_workers"`
	WritebackTimeout   time.Duration `mapstructure:"writeback_timeout"`
}

// WikipediaConfig 存储外部兜底搜索源的配置。
type WikipediaConfig struct {
	APIBaseURL  string        `mapstructure:"api_base_url"`
	SiteBaseURL string        `mapstructure:"site_base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ResultLimit int           `mapstructure:"result_limit"`
}

// RateLimitConfig 存储接口限流配置。
type RateLimitConfig struct {
	AISearchPerMinute int    `mapstructure:"ai_search_per_minute"`
	Backend           string `mapstructure:"backend"` // memory | redis
}

// setDefaults 注册与原有硬编码常量一致的默认值。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "post-embedding")
	v.SetDefault("kafka.group_id", "social-feed-embedding")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.timeout", 15*time.Second)

	v.SetDefault("search.default_limit", 5)
	v.SetDefault("search.max_limit", 20)
	v.SetDefault("search.candidate_limit", 200)
	v.SetDefault("search.relevance_threshold", 0.4)
	v.SetDefault("search.cache_ttl", 10*time.Minute)
	v.SetDefault("search.cache_max_entries", 1000)
	v.SetDefault("search.cache_backend", "memory")
	v.SetDefault("search.embed_workers", 8)
	v.SetDefault("search.writeback_timeout", 5*time.Second)

	v.SetDefault("wikipedia.api_base_url", "https://en.wikipedia.org/w/rest.php/v1")
	v.SetDefault("wikipedia.site_base_url", "https://en.wikipedia.org")
	v.SetDefault("wikipedia.timeout", 5*time.Second)
	v.SetDefault("wikipedia.result_limit", 3)

	v.SetDefault("rate_limit.ai_search_per_minute", 10)
	v.SetDefault("rate_limit.backend", "memory")
}

// Load 从指定路径读取 YAML 配置，环境变量（SOCIALFEED_ 前缀）可覆盖文件中的值。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SOCIALFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，并将结果写入全局 Conf 变量。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
