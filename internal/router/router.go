package router

import (
	"context"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/apicache"
	"github.com/sitecms/internal/config"
	"github.com/sitecms/internal/handler"
	"github.com/sitecms/internal/middleware"
	"github.com/sitecms/internal/pkg/jwt"
	"github.com/sitecms/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 走 HTTP 缓存的公开读取路径
const (
	ContentPathPrefix = "/api/content/"
	FormPathPrefix    = "/api/forms/slug/"
)

// ContentPath 返回页面内容的缓存键
func ContentPath(slug string) string { return ContentPathPrefix + slug }

// FormPath 返回表单定义的缓存键
func FormPath(slug string) string { return FormPathPrefix + slug }

// cacheKey 将公开读取路径映射为规范化 slug 的缓存键，与写入后的失效键保持一致
func cacheKey(path string) (string, bool) {
	for _, prefix := range []string{ContentPathPrefix, FormPathPrefix} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok {
			continue
		}
		if strings.Contains(rest, "/") {
			return "", false
		}
		slug, err := service.NormalizeSlug(rest)
		if err != nil {
			return "", false
		}
		return prefix + slug, true
	}
	return "", false
}

// cacheInvalidator 在内容写入后清除对应的公开读取缓存
type cacheInvalidator struct {
	cache  *apicache.Cache
	logger *zap.Logger
}

func (i cacheInvalidator) InvalidateContent(ctx context.Context, slug string) {
	i.clear(ctx, ContentPath(slug))
}

func (i cacheInvalidator) InvalidateForm(ctx context.Context, slug string) {
	i.clear(ctx, FormPath(slug))
}

func (i cacheInvalidator) clear(ctx context.Context, path string) {
	if err := i.cache.ClearURL(ctx, path); err != nil {
		i.logger.Warn("cache invalidation failed", zap.String("path", path), zap.Error(err))
	}
}

// SetupRouter 配置 Gin 引擎和路由。cache 为 nil 时使用进程内缓存。
func SetupRouter(gdb *gorm.DB, cfg config.AppConfig, logger *zap.Logger, cache *apicache.Cache) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = apicache.New(apicache.NewMemoryStore(), apicache.WithLogger(logger))
	}

	signer, err := jwt.NewSigner(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	invalidator := cacheInvalidator{cache: cache, logger: logger}
	authService := service.NewAuthService(gdb, signer, logger)
	api := handler.NewAPI(handler.Services{
		Content: service.NewPageContentService(gdb, invalidator, logger),
		Forms:   service.NewFormService(gdb, invalidator, logger),
		Media:   service.NewMediaService(gdb, logger),
		Auth:    authService,
	}, logger)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/ping", api.Ping)

	public := r.Group("/api")
	public.Use(middleware.HTTPCache(cache, middleware.HTTPCacheOptions{
		Paths: []string{ContentPathPrefix, FormPathPrefix},
		Key:   cacheKey,
	}))
	{
		public.POST("/auth/login", api.Login)
		public.GET("/content/:slug", api.GetPageContent)
		public.GET("/forms/slug/:slug", api.GetFormBySlug)
		public.POST("/forms/slug/:slug/submit",
			middleware.RateLimit(middleware.NewIPRateLimiter(cfg.FormSubmitPerMin, cfg.FormSubmitBurst)),
			api.SubmitForm,
		)
	}

	// 需要认证的管理接口
	admin := r.Group("/api")
	admin.Use(middleware.Auth(authService))
	{
		admin.GET("/admin/pages", api.ListPages)
		admin.GET("/admin/content/:slug", api.GetAdminPageContent)

		admin.PUT("/content/:slug/hero", api.UpdateHero)
		admin.POST("/content/:slug/sections", api.AddSection)
		admin.PUT("/content/:slug/sections/:id", api.UpdateSection)
		admin.DELETE("/content/:slug/sections/:id", api.DeleteSection)
		admin.PUT("/content/:slug/reorder", api.ReorderSections)

		admin.GET("/forms", api.ListForms)
		admin.POST("/forms", api.CreateForm)
		admin.GET("/forms/:id", api.GetForm)
		admin.PUT("/forms/:id", api.UpdateForm)
		admin.DELETE("/forms/:id", api.DeleteForm)
		admin.GET("/forms/:id/submissions", api.ListSubmissions)

		admin.GET("/media", api.ListMedia)
		admin.POST("/media", api.CreateMedia)
		admin.GET("/media/:id", api.GetMedia)
		admin.DELETE("/media/:id", api.DeleteMedia)
	}

	return r, nil
}

func corsConfig(cfg config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.CacheHeader},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsCfg.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	}
	return corsCfg
}

// originAllowed 按精确主机名或 "*.example.com" 形式匹配来源
func originAllowed(patterns []string, origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, pattern := range patterns {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		if u, err := url.Parse(p); err == nil && u.Host != "" {
			p = u.Hostname()
		}
		if strings.HasPrefix(p, "*.") {
			if strings.HasSuffix(host, p[1:]) {
				return true
			}
			continue
		}
		if host == p {
			return true
		}
	}
	return false
}
