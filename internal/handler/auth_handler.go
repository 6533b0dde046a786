package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验管理员凭证并返回 bearer token
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "username and password are required") {
		return
	}

	result, err := a.auth.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		a.respondServiceError(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Ping 健康检查
func (a *API) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
