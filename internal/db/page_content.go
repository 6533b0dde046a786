package db

import (
	"time"

	"gorm.io/datatypes"
)

// ContentTypeHero 页面顶部的 hero 区块，每个页面最多一个
const ContentTypeHero = "hero"

// 前台渲染使用的布局类型
const (
	LayoutFullWidth = "full_width"
	LayoutTwoColumn = "two_column"
	LayoutGrid      = "grid"
	LayoutList      = "list"
)

// PageContent 页面中的一个内容区块，同一页面的多行共享 PageSlug。
// Position 升序排列，允许出现间隔；Content 为 JSON 对象，结构由 ContentType 决定。
// BackgroundImageURL 保存媒体文件路径而不是媒体 ID。
type PageContent struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	PageSlug           string         `gorm:"size:100;not null;index:idx_page_contents_slug_position,priority:1" json:"page_slug"`
	ContentType        string         `gorm:"size:50;not null;index" json:"content_type"`
	SectionName        string         `gorm:"size:100;index" json:"section_name"`
	Title              string         `gorm:"size:255" json:"title"`
	Subtitle           string         `gorm:"size:255" json:"subtitle"`
	Description        string         `gorm:"type:text" json:"description"`
	Content            datatypes.JSON `json:"content"`
	LayoutType         string         `gorm:"size:30;not null" json:"layout_type"`
	BackgroundImageURL string         `gorm:"size:500" json:"background_image_url"`
	Position           int            `gorm:"not null;index:idx_page_contents_slug_position,priority:2" json:"position"`
	IsActive           bool           `gorm:"not null" json:"is_active"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TableName 返回自定义表名
func (PageContent) TableName() string {
	return "page_contents"
}

// IsHero 判断是否为页面 hero
func (p PageContent) IsHero() bool {
	return p.ContentType == ContentTypeHero
}
