package service

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/sitecms/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaService handles the media catalog. Page content stores the file path
// of an asset, never its id.
type MediaService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// MediaFilter describes filters for listing media assets.
type MediaFilter struct {
	Category string
	Search   string
	Page     int
	PerPage  int
}

// MediaListResult aggregates paginated media results.
type MediaListResult struct {
	Items      []db.MediaAsset `json:"items"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
}

// MediaInput represents fields accepted when registering an asset.
type MediaInput struct {
	FileName string
	FilePath string
	Category string
	AltText  string
	MimeType string
}

// NewMediaService creates a MediaService instance.
func NewMediaService(gdb *gorm.DB, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{db: gdb, logger: logger}
}

// List returns media assets matching the filter, newest first.
func (s *MediaService) List(ctx context.Context, filter MediaFilter) (MediaListResult, error) {
	result := MediaListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 24),
	}

	query := s.db.WithContext(ctx).Model(&db.MediaAsset{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", strings.ToLower(category))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("file_name LIKE ? OR alt_text LIKE ?", like, like)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	offset := (result.Page - 1) * result.PerPage

	if err := query.Order("created_at desc").Order("id desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}

	return result, nil
}

// Get fetches a media asset by id.
func (s *MediaService) Get(ctx context.Context, id uint) (*db.MediaAsset, error) {
	var item db.MediaAsset
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ResolvePath returns the file path of a media asset.
func (s *MediaService) ResolvePath(ctx context.Context, id uint) (string, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return item.FilePath, nil
}

// Create registers a new media asset.
func (s *MediaService) Create(ctx context.Context, input MediaInput) (*db.MediaAsset, error) {
	filePath := strings.TrimSpace(input.FilePath)
	if filePath == "" {
		return nil, invalid("file_path", "file path is required")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		fileName = path.Base(filePath)
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(fileName))
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		category = "general"
	}

	item := db.MediaAsset{
		FileName: fileName,
		FilePath: filePath,
		Category: category,
		AltText:  strings.TrimSpace(input.AltText),
		MimeType: mimeType,
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("file_path", "file path %q is already registered", filePath)
		}
		return nil, err
	}

	s.logger.Info("media asset registered", zap.Uint("id", item.ID), zap.String("path", item.FilePath))
	return &item, nil
}

// Delete removes a media asset.
func (s *MediaService) Delete(ctx context.Context, id uint) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return err
	}
	s.logger.Info("media asset deleted", zap.Uint("id", id))
	return nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
