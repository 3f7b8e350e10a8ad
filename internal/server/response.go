package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Code: status, Message: message})
}
