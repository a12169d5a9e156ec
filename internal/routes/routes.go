package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/handlers"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/middleware"
)

// RegisterShareRoutes wires the share surface under /api.
func RegisterShareRoutes(api *gin.RouterGroup, h *handlers.ShareHandler, jwtSecret string) {
	api.POST("/resolve", h.ResolveURL)
	api.GET("/platforms", h.ListPlatforms)

	shares := api.Group("/shares")
	{
		shares.POST("", middleware.CreateRateLimit(), h.CreateShare)
		shares.GET("/:id", h.GetShare)
		shares.DELETE("/:id", h.DeleteShare)
		shares.POST("/:id/migrate", middleware.AdminMiddleware(jwtSecret), h.MigrateTier)
	}

	api.GET("/users/:username/shares", h.GetUserShares)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminMiddleware(jwtSecret))
	{
		admin.POST("/cleanup", h.CleanupExpired)
	}
}
