package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// bindJSON 解析请求体到 dst，类型不匹配时按字段返回错误
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  message,
				"errors": gin.H{typeErr.Field: fmt.Sprintf("must be a %s", typeErr.Type.String())},
			})
			return false
		}
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}

// respondServiceError 将服务层错误映射为状态码，未知错误记录日志并返回 fallback
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	var fieldErrs service.FieldErrors
	var validation *service.ValidationError

	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": map[string]string(fieldErrs)})
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Message}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "invalid credentials")
	default:
		_ = c.Error(err)
		a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
