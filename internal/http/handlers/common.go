package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"shiptrack/internal/domain"
	"shiptrack/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RespondError sends standard error payload with request_id included.
// Keeps backward compatibility by always providing "message".
func RespondError(c *gin.Context, status int, message string, err error) {
	reqID := middleware.GetRequestID(c)
	payload := gin.H{
		"message":    message,
		"request_id": reqID,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondError(c, http.StatusBadRequest, "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", name+": invalid id", gin.H{"field": name})
		return 0, false
	}
	return id, true
}

// expectedVersion reads the optimistic-lock version from the body or an
// If-Match header ("3" or W/"3"). Zero means the caller did not send one.
func expectedVersion(c *gin.Context, body *int64) (int64, bool) {
	if body != nil {
		if *body < 0 {
			respondError(c, http.StatusBadRequest, "validation_error", "version: must not be negative", gin.H{"field": "version"})
			return 0, false
		}
		return *body, true
	}
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return 0, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "If-Match: invalid version", gin.H{"field": "version"})
		return 0, false
	}
	return v, true
}

func pagination(c *gin.Context) domain.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", c.Query("pageSize")))
	return domain.NewPagination(page, size)
}

func actorOrAbort(c *gin.Context) (domain.RequestContext, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return domain.RequestContext{}, false
	}
	return actor, true
}

func setVersionHeader(c *gin.Context, version int64) {
	c.Header("ETag", `"`+strconv.FormatInt(version, 10)+`"`)
}
