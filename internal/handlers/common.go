package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

// respondError maps an AppError onto the HTTP surface by its kind:
// validation -> 400, not_found -> 404, rate_limited -> 429 (+ Retry-After),
// storage_failure and anything unrecognized -> 500.
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if appErr.Kind == apperrors.KindRateLimited {
		c.Header("Retry-After", fmt.Sprintf("%d", int(appErr.RetryAfter.Seconds())))
	}

	body := gin.H{"error": appErr.Message, "kind": appErr.Kind}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(appErr.Code, body)
}
