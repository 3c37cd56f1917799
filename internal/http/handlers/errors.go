package handlers

import (
	"errors"
	"log"
	"net/http"

	"shiptrack/internal/domain"
	"shiptrack/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		var details any
		if f := validationField(err); f != "" {
			details = gin.H{"field": f}
		}
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), details)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsProvider(err):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error(), "request_id": middleware.GetRequestID(c)})
	default:
		log.Printf("[ERROR] request_id=%s path=%s err=%v", middleware.GetRequestID(c), c.Request.URL.Path, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

func validationField(err error) string {
	var v domain.ValidationError
	if errors.As(err, &v) {
		return v.Field
	}
	return ""
}
