package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sitecms/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// recordingInvalidator 记录每次缓存失效调用
type recordingInvalidator struct {
	mu      sync.Mutex
	content []string
	forms   []string
}

func (r *recordingInvalidator) InvalidateContent(_ context.Context, slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = append(r.content, slug)
}

func (r *recordingInvalidator) InvalidateForm(_ context.Context, slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms = append(r.forms, slug)
}

func (r *recordingInvalidator) contentCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.content...)
}

func (r *recordingInvalidator) formCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.forms...)
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
