package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
//
// Enabled=false 时服务不连接数据库，目录只能来自远程数据源。
type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig 课程目录配置
type CatalogConfig struct {
	FeedURL           string        `mapstructure:"feed_url"`
	Source            string        `mapstructure:"source"` // feed | db
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	MaxBytes          int64         `mapstructure:"max_bytes"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Timezone          string        `mapstructure:"timezone"`
	LabSourceTimezone string        `mapstructure:"lab_source_timezone"`
	BackfillExams     bool          `mapstructure:"backfill_exams"`
	MirrorToDB        bool          `mapstructure:"mirror_to_db"`
}

// Locations 解析展示时区与实验课来源时区
func (c *CatalogConfig) Locations() (display, labSource *time.Location, err error) {
	display, err = time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog.timezone 无效: %w", err)
	}
	labSource, err = time.LoadLocation(c.LabSourceTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog.lab_source_timezone 无效: %w", err)
	}
	return display, labSource, nil
}

// OracleConfig 辅助排课（生成式模型）配置
type OracleConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 限流配置（每 IP 每分钟）
type RateLimitConfig struct {
	AIPerMinute      int `mapstructure:"ai_per_minute"`
	RefreshPerMinute int `mapstructure:"refresh_per_minute"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ROUTINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv 将 .env 文件中的变量写入进程环境（已存在的变量不覆盖）。
// 未指定路径时读取当前目录的 .env，文件不存在时忽略。
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("读取 .env 失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "smart_routine")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Dhaka")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("catalog.feed_url", "https://usis-cdn.eniamza.com/connect.json")
	v.SetDefault("catalog.source", "feed")
	v.SetDefault("catalog.refresh_interval", "30m")
	v.SetDefault("catalog.fetch_timeout", "20s")
	v.SetDefault("catalog.max_bytes", 32<<20)
	v.SetDefault("catalog.cache_ttl", "6h")
	v.SetDefault("catalog.timezone", "Asia/Dhaka")
	v.SetDefault("catalog.lab_source_timezone", "Asia/Dhaka")
	v.SetDefault("catalog.backfill_exams", false)
	v.SetDefault("catalog.mirror_to_db", false)

	v.SetDefault("oracle.enabled", false)
	v.SetDefault("oracle.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("oracle.model", "gemini-1.5-flash")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.timeout", "30s")

	v.SetDefault("rate_limit.ai_per_minute", 10)
	v.SetDefault("rate_limit.refresh_per_minute", 2)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Catalog.Source {
	case "feed":
		if c.Catalog.FeedURL == "" {
			return fmt.Errorf("配置校验失败: catalog.source=feed 时 catalog.feed_url 不能为空")
		}
	case "db":
		if !c.Database.Enabled {
			return fmt.Errorf("配置校验失败: catalog.source=db 需要 db.enabled=true")
		}
	default:
		return fmt.Errorf("配置校验失败: catalog.source 只能是 feed 或 db")
	}
	if c.Catalog.MirrorToDB && !c.Database.Enabled {
		return fmt.Errorf("配置校验失败: catalog.mirror_to_db 需要 db.enabled=true")
	}
	if c.Catalog.RefreshInterval <= 0 || c.Catalog.FetchTimeout <= 0 {
		return fmt.Errorf("配置校验失败: catalog.refresh_interval 与 catalog.fetch_timeout 必须为正")
	}
	if c.Catalog.MaxBytes <= 0 {
		return fmt.Errorf("配置校验失败: catalog.max_bytes 必须为正")
	}
	if _, _, err := c.Catalog.Locations(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.Oracle.Enabled {
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("配置校验失败: oracle.enabled=true 时 oracle.api_key 不能为空")
		}
		if c.Oracle.Timeout <= 0 {
			return fmt.Errorf("配置校验失败: oracle.timeout 必须为正")
		}
	}
	return nil
}
