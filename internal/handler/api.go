package handler

import (
	"github.com/sitecms/internal/service"
	"go.uber.org/zap"
)

// Services 汇总处理器依赖的服务层
type Services struct {
	Content *service.PageContentService
	Forms   *service.FormService
	Media   *service.MediaService
	Auth    *service.AuthService
}

// API 聚合 HTTP 处理器共享的依赖
type API struct {
	content *service.PageContentService
	forms   *service.FormService
	media   *service.MediaService
	auth    *service.AuthService
	logger  *zap.Logger
}

// NewAPI 使用共享服务构造处理器集合
func NewAPI(services Services, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		content: services.Content,
		forms:   services.Forms,
		media:   services.Media,
		auth:    services.Auth,
		logger:  logger,
	}
}
