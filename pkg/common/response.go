package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API response is wrapped in
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Meta carries response metadata such as cache provenance
type Meta struct {
	Cached        bool   `json:"cached,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Total         int    `json:"total,omitempty"`
}

// SuccessResponse writes a 200 with data
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessResponseWithStatus writes data with an explicit status and message
func SuccessResponseWithStatus(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SuccessResponseWithMeta writes a 200 with data and metadata
func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// CreatedResponse writes a 201 with data
func CreatedResponse(c *gin.Context, data interface{}) {
	SuccessResponseWithStatus(c, http.StatusCreated, data, "")
}

// ErrorResponse writes a failure envelope
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    status,
			Message: message,
		},
	})
}

// AppErrorResponse writes the failure envelope for an AppError
func AppErrorResponse(c *gin.Context, err *AppError) {
	ErrorResponse(c, err.Code, err.Message)
}
