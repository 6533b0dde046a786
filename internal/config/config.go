package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath 未指定配置文件时读取的默认路径，文件不存在时忽略
const DefaultConfigPath = "sitecms.yml"

// DefaultJWTSecret 仅用于本地开发，release 模式下必须替换
const DefaultJWTSecret = "sitecms-dev-secret"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	GinMode           string
	JWTSecret         string
	TokenTTL          time.Duration
	RedisURL          string
	AllowedOrigins    []string
	SuperRootUserName string
	SuperRootPassword string
	SiteBaseURL       string
	FormSubmitPerMin  int
	FormSubmitBurst   int
}

// IsDev 判断是否以 debug 模式运行
func (c AppConfig) IsDev() bool {
	return c.GinMode == "debug"
}

// Validate 检查 release 模式下的必填安全配置
func (c AppConfig) Validate() error {
	if c.GinMode != "release" {
		return nil
	}
	secret := strings.TrimSpace(c.JWTSecret)
	if secret == "" || secret == DefaultJWTSecret {
		return fmt.Errorf("jwt secret must be set in release mode (JWT_SECRET or jwt_secret)")
	}
	return nil
}

// fileConfig 对应可选 YAML 配置文件的结构
type fileConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	Port           string   `yaml:"port"`
	DatabasePath   string   `yaml:"database_path"`
	GinMode        string   `yaml:"gin_mode"`
	JWTSecret      string   `yaml:"jwt_secret"`
	TokenTTL       string   `yaml:"token_ttl"`
	RedisURL       string   `yaml:"redis_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SuperRoot      struct {
		UserName string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"super_root"`
	SiteBaseURL string `yaml:"site_base_url"`
	FormSubmit  struct {
		PerMinute int `yaml:"per_minute"`
		Burst     int `yaml:"burst"`
	} `yaml:"form_submit"`
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("TOKEN_TTL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOr("DATABASE_PATH", "sitecms.db"),
		GinMode:           envOr("GIN_MODE", "release"),
		JWTSecret:         envOr("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:          ttl,
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		SiteBaseURL:       envOr("SITE_BASE_URL", "http://localhost:8080"),
		FormSubmitPerMin:  envInt("FORM_SUBMIT_PER_MINUTE", 10),
		FormSubmitBurst:   envInt("FORM_SUBMIT_BURST", 5),
	}
}

// LoadFile 先读取环境变量，再用 YAML 文件覆盖。
// 使用默认路径且文件不存在时不视为错误。
func LoadFile(path string) (AppConfig, error) {
	cfg := Load()

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := file.applyTo(&cfg); err != nil {
		return cfg, fmt.Errorf("apply config %s: %w", path, err)
	}
	return cfg, nil
}

func (f fileConfig) applyTo(cfg *AppConfig) error {
	if v := strings.TrimSpace(f.Port); v != "" {
		cfg.Port = v
		cfg.ListenAddr = ":" + v
	}
	if v := strings.TrimSpace(f.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(f.DatabasePath); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(f.GinMode); v != "" {
		cfg.GinMode = v
	}
	if v := strings.TrimSpace(f.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(f.TokenTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("token_ttl: %w", err)
		}
		cfg.TokenTTL = ttl
	}
	if v := strings.TrimSpace(f.RedisURL); v != "" {
		cfg.RedisURL = v
	}
	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
	if v := strings.TrimSpace(f.SuperRoot.UserName); v != "" {
		cfg.SuperRootUserName = v
	}
	if v := strings.TrimSpace(f.SuperRoot.Password); v != "" {
		cfg.SuperRootPassword = v
	}
	if v := strings.TrimSpace(f.SiteBaseURL); v != "" {
		cfg.SiteBaseURL = v
	}
	if f.FormSubmit.PerMinute > 0 {
		cfg.FormSubmitPerMin = f.FormSubmit.PerMinute
	}
	if f.FormSubmit.Burst > 0 {
		cfg.FormSubmitBurst = f.FormSubmit.Burst
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
