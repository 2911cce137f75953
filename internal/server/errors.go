package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/sales-pivot/internal/common"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidRange), errors.Is(err, common.ErrIngestion):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoUpload), errors.Is(err, common.ErrNoReport):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		common.LogError(err, "request failed", common.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": status,
		})
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: message})
}
