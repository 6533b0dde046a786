package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/service"
)

type heroRequest struct {
	Title              *string         `json:"title"`
	Subtitle           *string         `json:"subtitle"`
	Description        *string         `json:"description"`
	Content            json.RawMessage `json:"content"`
	LayoutType         *string         `json:"layout_type"`
	BackgroundImageURL *string         `json:"background_image_url"`
	IsActive           *bool           `json:"is_active"`
}

type sectionRequest struct {
	ContentType        string          `json:"content_type"`
	SectionName        string          `json:"section_name"`
	Title              string          `json:"title"`
	Subtitle           string          `json:"subtitle"`
	Description        string          `json:"description"`
	Content            json.RawMessage `json:"content"`
	LayoutType         string          `json:"layout_type"`
	BackgroundImageURL string          `json:"background_image_url"`
	Position           *int            `json:"position"`
	IsActive           *bool           `json:"is_active"`
}

type sectionPatchRequest struct {
	ContentType        *string         `json:"content_type"`
	SectionName        *string         `json:"section_name"`
	Title              *string         `json:"title"`
	Subtitle           *string         `json:"subtitle"`
	Description        *string         `json:"description"`
	Content            json.RawMessage `json:"content"`
	LayoutType         *string         `json:"layout_type"`
	BackgroundImageURL *string         `json:"background_image_url"`
	Position           *int            `json:"position"`
	IsActive           *bool           `json:"is_active"`
}

type reorderRequest struct {
	Sections []service.PositionUpdate `json:"sections"`
}

// GetPageContent 返回公开页面的内容分组
func (a *API) GetPageContent(c *gin.Context) {
	bundle, err := a.content.GetPageContent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "failed to load page content")
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// GetAdminPageContent 返回包含未启用区块的页面内容
func (a *API) GetAdminPageContent(c *gin.Context) {
	bundle, err := a.content.GetAdminPageContent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "failed to load page content")
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// ListPages 返回所有页面及其区块数量
func (a *API) ListPages(c *gin.Context) {
	pages, err := a.content.ListPages(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "failed to list pages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// UpdateHero 创建或更新页面 hero
func (a *API) UpdateHero(c *gin.Context) {
	var payload heroRequest
	if !bindJSON(c, &payload, "invalid hero payload") {
		return
	}

	hero, err := a.content.UpdateHero(c.Request.Context(), c.Param("slug"), service.HeroInput{
		Title:              payload.Title,
		Subtitle:           payload.Subtitle,
		Description:        payload.Description,
		Content:            payload.Content,
		LayoutType:         payload.LayoutType,
		BackgroundImageURL: payload.BackgroundImageURL,
		IsActive:           payload.IsActive,
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to save hero")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "hero saved", "content": hero})
}

// AddSection 新增页面区块
func (a *API) AddSection(c *gin.Context) {
	var payload sectionRequest
	if !bindJSON(c, &payload, "invalid section payload") {
		return
	}

	section, err := a.content.AddSection(c.Request.Context(), c.Param("slug"), service.SectionInput{
		ContentType:        payload.ContentType,
		SectionName:        payload.SectionName,
		Title:              payload.Title,
		Subtitle:           payload.Subtitle,
		Description:        payload.Description,
		Content:            payload.Content,
		LayoutType:         payload.LayoutType,
		BackgroundImageURL: payload.BackgroundImageURL,
		Position:           payload.Position,
		IsActive:           payload.IsActive,
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to add section")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "section added", "content": section})
}

// UpdateSection 局部更新单个区块
func (a *API) UpdateSection(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid section id")
		return
	}

	var payload sectionPatchRequest
	if !bindJSON(c, &payload, "invalid section payload") {
		return
	}

	section, err := a.content.UpdateSection(c.Request.Context(), c.Param("slug"), id, service.SectionPatch{
		ContentType:        payload.ContentType,
		SectionName:        payload.SectionName,
		Title:              payload.Title,
		Subtitle:           payload.Subtitle,
		Description:        payload.Description,
		Content:            payload.Content,
		LayoutType:         payload.LayoutType,
		BackgroundImageURL: payload.BackgroundImageURL,
		Position:           payload.Position,
		IsActive:           payload.IsActive,
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to update section")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "section updated", "content": section})
}

// DeleteSection 删除页面区块
func (a *API) DeleteSection(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid section id")
		return
	}

	if err := a.content.DeleteSection(c.Request.Context(), c.Param("slug"), id); err != nil {
		a.respondServiceError(c, err, "failed to delete section")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "section deleted"})
}

// ReorderSections 批量更新区块排序
func (a *API) ReorderSections(c *gin.Context) {
	var payload reorderRequest
	if !bindJSON(c, &payload, "invalid reorder payload") {
		return
	}

	if err := a.content.ReorderSections(c.Request.Context(), c.Param("slug"), payload.Sections); err != nil {
		a.respondServiceError(c, err, "failed to reorder sections")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sections reordered"})
}
