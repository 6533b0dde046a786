package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例，供脚本与启动流程使用
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 sitecms.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "sitecms.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Migrate 迁移全部模型，并补充 gorm 标签无法表达的索引
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&User{},
		&PageContent{},
		&FormDefinition{},
		&FormField{},
		&FormSubmission{},
		&MediaAsset{},
	); err != nil {
		return err
	}

	// 每个页面只允许一个 hero；sqlite 的部分索引条件不接受绑定参数
	return gdb.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_page_contents_single_hero ON page_contents (page_slug) WHERE content_type = '" + ContentTypeHero + "'",
	).Error
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
