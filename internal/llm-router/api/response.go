package api

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope every /api/v1 handler except health writes.
type Response struct {
	Success   bool        `json:"success"`
	RequestID string      `json:"requestId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(
		status, Response{
			Success:   true,
			RequestID: c.GetString(requestIDKey),
			Data:      data,
		},
	)
}

func ErrorResponse(c *gin.Context, status int, err interface{}) {
	c.JSON(
		status, Response{
			Success:   false,
			RequestID: c.GetString(requestIDKey),
			Error:     err,
		},
	)
}
