package db

import "time"

// MediaAsset 定义已上传的媒体资源，页面内容只引用其 FilePath
type MediaAsset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	FilePath  string    `gorm:"size:500;not null;uniqueIndex" json:"file_path"`
	Category  string    `gorm:"size:50;index" json:"category"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	MimeType  string    `gorm:"size:100" json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
