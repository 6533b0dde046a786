package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/service"
)

type mediaRequest struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	Category string `json:"category"`
	AltText  string `json:"alt_text"`
	MimeType string `json:"mime_type"`
}

// ListMedia 分页返回媒体资源
func (a *API) ListMedia(c *gin.Context) {
	result, err := a.media.List(c.Request.Context(), service.MediaFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PerPage:  queryInt(c, "per_page"),
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to list media")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMedia 返回单个媒体资源
func (a *API) GetMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid media id")
		return
	}

	item, err := a.media.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "failed to load media")
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateMedia 登记已上传的文件
func (a *API) CreateMedia(c *gin.Context) {
	var payload mediaRequest
	if !bindJSON(c, &payload, "invalid media payload") {
		return
	}

	item, err := a.media.Create(c.Request.Context(), service.MediaInput{
		FileName: payload.FileName,
		FilePath: payload.FilePath,
		Category: payload.Category,
		AltText:  payload.AltText,
		MimeType: payload.MimeType,
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to register media")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "media registered", "media": item})
}

// DeleteMedia 删除媒体资源记录
func (a *API) DeleteMedia(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid media id")
		return
	}

	if err := a.media.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "failed to delete media")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "media deleted"})
}
