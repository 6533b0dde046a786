package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sitecms/internal/apicache"
	"github.com/sitecms/internal/config"
	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/router"
	"go.uber.org/zap"
)

func main() {
	defaultPath := config.DefaultConfigPath
	if env := strings.TrimSpace(os.Getenv("SITECMS_CONFIG")); env != "" {
		defaultPath = env
	}
	configPath := flag.String("config", defaultPath, "Path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		logger.Fatal("failed to ensure admin user", zap.Error(err))
	}

	cache, rdb := newCache(cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	// 设置 Gin 路由
	r, err := router.SetupRouter(db.DB, cfg, logger, cache)
	if err != nil {
		logger.Fatal("failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("mode", cfg.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited")
}

func newLogger(cfg config.AppConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// newCache 配置了 redis 且可连接时使用 redis，否则使用进程内缓存
func newCache(cfg config.AppConfig, logger *zap.Logger) (*apicache.Cache, *redis.Client) {
	if cfg.RedisURL == "" {
		return apicache.New(apicache.NewMemoryStore(), apicache.WithLogger(logger)), nil
	}

	rdb, err := apicache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory api cache", zap.Error(err))
		return apicache.New(apicache.NewMemoryStore(), apicache.WithLogger(logger)), nil
	}

	store := apicache.NewRedisStore(rdb, apicache.DefaultRedisPrefix)
	cache := apicache.New(store, apicache.WithLogger(logger))
	// 清空上一个进程遗留的缓存条目
	if err := cache.Clear(context.Background()); err != nil {
		logger.Warn("failed to flush api cache", zap.Error(err))
	}
	logger.Info("api cache backed by redis")
	return cache, rdb
}
