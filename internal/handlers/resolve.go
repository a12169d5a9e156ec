package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type resolveRequest struct {
	URL string `json:"url" binding:"required"`
}

// ResolveURL handles POST /api/resolve: classifies a raw URL, extracts the
// canonical post id and returns the normalized form the archiver fetches.
// Unrecognized or malformed input is a 200 with detected=false, since
// classification is called speculatively on untrusted input.
func (h *ShareHandler) ResolveURL(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	detection := h.recognizer.Detect(req.URL)
	if detection == nil {
		c.JSON(http.StatusOK, gin.H{"detected": false})
		return
	}

	resp := gin.H{
		"detected":   true,
		"platform":   detection.Platform,
		"confidence": detection.Confidence,
		"normalized": h.recognizer.Normalize(req.URL, detection.Platform),
	}
	if postID, ok := h.recognizer.ExtractPostID(req.URL); ok {
		resp["postId"] = postID
	}
	c.JSON(http.StatusOK, resp)
}

// ListPlatforms handles GET /api/platforms
func (h *ShareHandler) ListPlatforms(c *gin.Context) {
	platforms := h.recognizer.SupportedPlatforms()
	domains := make(map[string][]string, len(platforms))
	for _, p := range platforms {
		domains[p] = h.recognizer.PlatformDomains(p)
	}
	c.JSON(http.StatusOK, gin.H{"platforms": platforms, "domains": domains})
}
