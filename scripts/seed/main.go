package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sitecms/internal/config"
	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/service"
	"go.uber.org/zap"
)

// 初始化管理员账号、首页默认内容和示例媒体
func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (default: SUPER_ROOT_PASSWORD or admin123)")
	withMedia := flag.Bool("media", true, "register sample media assets")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	pass := *password
	if pass == "" {
		pass = cfg.SuperRootPassword
	}
	if pass == "" {
		pass = "admin123"
	}
	user := *username
	if cfg.SuperRootUserName != "" && *username == "admin" {
		user = cfg.SuperRootUserName
	}
	if err := db.EnsureUser(db.DB, user, pass); err != nil {
		log.Fatal("创建管理员失败:", err)
	}
	fmt.Printf("✅ 管理员账号就绪: %s\n", user)

	ctx := context.Background()
	logger := zap.NewNop()
	report, err := service.SeedDefaults(ctx,
		service.NewPageContentService(db.DB, nil, logger),
		service.NewFormService(db.DB, nil, logger),
	)
	if err != nil {
		log.Fatal("默认内容写入失败:", err)
	}
	fmt.Printf("✅ 默认内容: %d hero, %d sections, %d forms\n", report.Heroes, report.Sections, report.Forms)

	if *withMedia {
		created, err := seedMedia(ctx, db.DB)
		if err != nil {
			log.Fatal("示例媒体写入失败:", err)
		}
		fmt.Printf("✅ 示例媒体: 新增 %d 条\n", created)
	}

	if report.Heroes+report.Sections+report.Forms == 0 {
		fmt.Println("内容已存在，无需初始化")
	}
}
