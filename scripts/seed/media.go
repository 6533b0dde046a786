package main

import (
	"context"
	"errors"

	"github.com/sitecms/internal/service"
	"gorm.io/gorm"
)

// sampleMedia 为背景图选择器提供的示例资源
var sampleMedia = []service.MediaInput{
	{FilePath: "/uploads/hero/skyline.jpg", Category: "hero", AltText: "City skyline at dusk"},
	{FilePath: "/uploads/hero/team-offsite.jpg", Category: "hero", AltText: "Team at the annual offsite"},
	{FilePath: "/uploads/team/placeholder.png", Category: "team", AltText: "Team member placeholder"},
	{FilePath: "/uploads/portfolio/placeholder-logo.svg", Category: "portfolio", AltText: "Company logo placeholder"},
	{FilePath: "/uploads/general/office.jpg", AltText: "Office interior"},
}

// seedMedia 登记示例媒体，已存在的路径直接跳过
func seedMedia(ctx context.Context, gdb *gorm.DB) (int, error) {
	media := service.NewMediaService(gdb, nil)
	created := 0
	for _, input := range sampleMedia {
		if _, err := media.Create(ctx, input); err != nil {
			if errors.Is(err, service.ErrValidation) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
