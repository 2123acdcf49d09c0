package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("默认端口应为 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("配置文件应覆盖默认值, got %q", cfg.Log.Level)
	}
	if cfg.Catalog.RefreshInterval != 30*time.Minute {
		t.Fatalf("默认刷新间隔应为 30m, got %v", cfg.Catalog.RefreshInterval)
	}
	if cfg.Oracle.Timeout != 30*time.Second {
		t.Fatalf("默认辅助排课超时应为 30s, got %v", cfg.Oracle.Timeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROUTINE_SERVER_PORT", "9100")
	t.Setenv("ROUTINE_CATALOG_TIMEZONE", "UTC")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("环境变量应覆盖配置文件, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.Timezone != "UTC" {
		t.Fatalf("期望 UTC, got %q", cfg.Catalog.Timezone)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Catalog: CatalogConfig{
			FeedURL:           "http://example.invalid/connect.json",
			Source:            "feed",
			RefreshInterval:   time.Minute,
			FetchTimeout:      time.Second,
			MaxBytes:          1024,
			Timezone:          "Asia/Dhaka",
			LabSourceTimezone: "UTC",
		},
		Oracle: OracleConfig{Timeout: time.Second},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cases := map[string]func(c *Config){
		"端口越界":        func(c *Config) { c.Server.Port = 70000 },
		"未知数据源":       func(c *Config) { c.Catalog.Source = "ftp" },
		"db 源未启用数据库":  func(c *Config) { c.Catalog.Source = "db" },
		"镜像未启用数据库":    func(c *Config) { c.Catalog.MirrorToDB = true },
		"时区无效":        func(c *Config) { c.Catalog.Timezone = "Mars/Olympus" },
		"刷新间隔为零":      func(c *Config) { c.Catalog.RefreshInterval = 0 },
		"启用辅助排课但缺少密钥": func(c *Config) { c.Oracle.Enabled = true },
		"feed 源缺少地址":   func(c *Config) { c.Catalog.FeedURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("期望校验失败")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("ROUTINE_ORACLE_MODEL=gemini-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ROUTINE_ORACLE_MODEL") })

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("读取 .env 失败: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Oracle.Model != "gemini-test" {
		t.Fatalf(".env 中的变量应生效, got %q", cfg.Oracle.Model)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("文件不存在时应忽略: %v", err)
	}
}
