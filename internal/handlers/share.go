package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/config"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/guard"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/models"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/platform"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/services"
	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/logger"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/utils"
)

// ShareHandler is the thin HTTP layer over the store, guard and recognizer.
type ShareHandler struct {
	store      *services.ShareStore
	index      *services.UserIndex
	limiter    *guard.RateLimiter
	recognizer *platform.Recognizer
	cfg        *config.Config
}

func NewShareHandler(store *services.ShareStore, index *services.UserIndex, limiter *guard.RateLimiter, recognizer *platform.Recognizer, cfg *config.Config) *ShareHandler {
	return &ShareHandler{
		store:      store,
		index:      index,
		limiter:    limiter,
		recognizer: recognizer,
		cfg:        cfg,
	}
}

type createShareRequest struct {
	Source   models.SourceReference `json:"sourceReference" binding:"required"`
	Content  string                 `json:"content" binding:"required"`
	Metadata models.ShareMetadata   `json:"metadata"`
	Username string                 `json:"username"`
	Password string                 `json:"password"`
	Tier     models.Tier            `json:"tier"`
}

// CreateShare handles POST /api/shares
func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tier := req.Tier
	if tier == "" {
		tier = models.TierFree
	}
	if !tier.Valid() {
		respondError(c, apperrors.Validation("Unknown share tier: "+string(tier)))
		return
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := guard.HashPassword(req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		passwordHash = hash
	}

	now := time.Now()
	rec := &models.ShareRecord{
		ID:           utils.GenerateID(),
		Source:       req.Source,
		Content:      req.Content,
		Metadata:     req.Metadata,
		PasswordHash: passwordHash,
		Tier:         tier,
		CreatedAt:    now,
		LastAccessed: now,
	}

	if err := h.store.Save(c.Request.Context(), rec); err != nil {
		respondError(c, err)
		return
	}

	if req.Username != "" {
		if err := h.index.AddPost(c.Request.Context(), req.Username, rec.ID); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        rec.ID,
		"shareUrl":  fmt.Sprintf("%s/share/%s", h.cfg.FrontendURL, rec.ID),
		"tier":      rec.Tier,
		"expiresAt": rec.ExpiresAt,
		"protected": passwordHash != "",
	})
}

// GetShare handles GET /api/shares/:id. Password-protected shares take the
// plaintext in X-Share-Password; attempts are gated per client address by
// the brute-force limiter before any verification runs.
func (h *ShareHandler) GetShare(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if rec.Expired(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"error": "Share expired"})
		return
	}

	if rec.PasswordHash != "" {
		clientIP := c.ClientIP()

		status, err := h.limiter.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			respondError(c, err)
			return
		}
		if !status.Allowed {
			respondError(c, apperrors.RateLimited("Too many password attempts", status.RetryAfter))
			return
		}

		password := c.GetHeader("X-Share-Password")
		if !guard.VerifyPassword(password, rec.PasswordHash) {
			if err := h.limiter.RecordAttempt(c.Request.Context(), clientIP); err != nil {
				logger.Warn().Str("ip", clientIP).Err(err).Msg("failed to record password attempt")
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Password required or incorrect"})
			return
		}

		if err := h.limiter.ResetLimit(c.Request.Context(), clientIP); err != nil {
			logger.Warn().Str("ip", clientIP).Err(err).Msg("failed to reset password limit")
		}
	}

	// Best-effort view accounting; a lost update under concurrent reads is
	// accepted.
	now := time.Now()
	views := rec.ViewCount + 1
	patch := models.MetadataPatch{ViewCount: &views, LastAccessed: &now}
	if err := h.store.UpdateMetadata(c.Request.Context(), id, patch); err != nil {
		logger.Warn().Str("share_id", id).Err(err).Msg("failed to bump view count")
	}
	rec.ViewCount = views
	rec.LastAccessed = now

	c.JSON(http.StatusOK, rec)
}

// DeleteShare handles DELETE /api/shares/:id. Mutating operations
// pre-validate the id shape before touching the stores.
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		respondError(c, apperrors.Validation("Invalid share id"))
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	if username := c.Query("username"); username != "" {
		if err := h.index.RemovePost(c.Request.Context(), username, id); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type migrateTierRequest struct {
	FromTier models.Tier `json:"fromTier" binding:"required"`
	ToTier   models.Tier `json:"toTier" binding:"required"`
}

// MigrateTier handles POST /api/shares/:id/migrate (admin)
func (h *ShareHandler) MigrateTier(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		respondError(c, apperrors.Validation("Invalid share id"))
		return
	}

	var req migrateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.store.MigrateTier(c.Request.Context(), id, req.FromTier, req.ToTier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CleanupExpired handles POST /api/admin/cleanup (admin)
func (h *ShareHandler) CleanupExpired(c *gin.Context) {
	result, err := h.store.CleanupExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUserShares handles GET /api/users/:username/shares. Ids whose records
// have already expired out of the stores are skipped.
func (h *ShareHandler) GetUserShares(c *gin.Context) {
	ids, err := h.index.Posts(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	shares := make([]*models.ShareRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := h.store.Get(c.Request.Context(), id)
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindNotFound) {
				continue
			}
			respondError(c, err)
			return
		}
		shares = append(shares, rec)
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares})
}
