package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/forms"
	"github.com/sitecms/internal/service"
)

type formRequest struct {
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Description    string        `json:"description"`
	SuccessMessage string        `json:"success_message"`
	IsActive       *bool         `json:"is_active"`
	Fields         []forms.Field `json:"fields"`
}

func (r formRequest) toInput() service.FormInput {
	return service.FormInput{
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		SuccessMessage: r.SuccessMessage,
		IsActive:       r.IsActive,
		Fields:         r.Fields,
	}
}

// GetFormBySlug 返回公开表单的字段定义
func (a *API) GetFormBySlug(c *gin.Context) {
	form, err := a.forms.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "failed to load form")
		return
	}
	c.JSON(http.StatusOK, form)
}

// SubmitForm 校验并保存公开提交，请求体为字段名到值的映射
func (a *API) SubmitForm(c *gin.Context) {
	var values map[string]any
	if !bindJSON(c, &values, "invalid submission payload") {
		return
	}

	result, err := a.forms.Submit(c.Request.Context(), c.Param("slug"), values, service.SubmissionMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to submit form")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListForms 返回后台表单列表
func (a *API) ListForms(c *gin.Context) {
	defs, err := a.forms.List(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "failed to list forms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": defs})
}

// GetForm 按 ID 返回表单，包括未启用的表单
func (a *API) GetForm(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid form id")
		return
	}

	def, err := a.forms.GetByID(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "failed to load form")
		return
	}
	c.JSON(http.StatusOK, def)
}

// CreateForm 创建表单及其字段
func (a *API) CreateForm(c *gin.Context) {
	var payload formRequest
	if !bindJSON(c, &payload, "invalid form payload") {
		return
	}

	def, err := a.forms.Create(c.Request.Context(), payload.toInput())
	if err != nil {
		a.respondServiceError(c, err, "failed to create form")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "form created", "form": def})
}

// UpdateForm 整体替换表单及其字段
func (a *API) UpdateForm(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid form id")
		return
	}

	var payload formRequest
	if !bindJSON(c, &payload, "invalid form payload") {
		return
	}

	def, err := a.forms.Update(c.Request.Context(), id, payload.toInput())
	if err != nil {
		a.respondServiceError(c, err, "failed to update form")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "form updated", "form": def})
}

// DeleteForm 删除表单、字段与提交记录
func (a *API) DeleteForm(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid form id")
		return
	}

	if err := a.forms.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "failed to delete form")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "form deleted"})
}

// ListSubmissions 返回表单最新的提交记录
func (a *API) ListSubmissions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid form id")
		return
	}

	submissions, err := a.forms.ListSubmissions(c.Request.Context(), id, queryInt(c, "limit"))
	if err != nil {
		a.respondServiceError(c, err, "failed to list submissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}
