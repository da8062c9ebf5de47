package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/config"
	"github.com/clanktank/judge-engine/internal/metrics"
	"github.com/clanktank/judge-engine/internal/prizepool"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/internal/votes"
	"github.com/clanktank/judge-engine/pkg/models"
)

// Handler bundles every dependency the route handlers need. It replaces
// the teacher's APIHandler (dbStore/btcClient/wsHub/blockScanner), one
// field per domain component instead of one per Bitcoin subsystem.
type Handler struct {
	store     *store.Store
	cfg       *config.Config
	audit     *audit.Log
	auth      *Auth
	hub       *Hub
	prizepool *prizepool.Watcher
	ingestor  *votes.Ingestor
	holders   *votes.Registry
	uploadDir string
}

// NewHandler constructs the Handler. prizepool/ingestor/holders may be
// nil when those subsystems are not configured: the prize-pool routes
// then return 503 (see handlePrizePool), the Helius webhook acknowledges
// deliveries without ingesting them, and community scores fall back to
// sender-weight-only scoring.
func NewHandler(st *store.Store, cfg *config.Config, al *audit.Log, au *Auth, hub *Hub, pw *prizepool.Watcher, ing *votes.Ingestor, holders *votes.Registry, uploadDir string) *Handler {
	return &Handler{
		store:     st,
		cfg:       cfg,
		audit:     al,
		auth:      au,
		hub:       hub,
		prizepool: pw,
		ingestor:  ing,
		holders:   holders,
		uploadDir: uploadDir,
	}
}

// SetupRouter wires every route. Each entity group is registered under
// /api/v1 and /api/v2 plus an unversioned alias that delegates to v2 —
// the "latest wins" scheme §4.11 requires. Deprecated v1 write paths
// (POST submissions) return 410, matching the original's sunset policy.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := NewRateLimiter(30, 5, h.audit, h.cfg.RateLimitEnabled)

	for _, version := range []string{"v1", "v2"} {
		registerVersionedRoutes(r, h, version, limiter)
	}
	registerAliasRoutes(r, h, limiter)
	registerUnversionedRoutes(r, h, limiter)

	return r
}

func registerVersionedRoutes(r *gin.Engine, h *Handler, version string, limiter *RateLimiter) {
	schemaVersion := parseVersion(version)
	group := r.Group("/api/" + version)

	group.GET("/submissions", h.handleListSubmissions)
	group.GET("/submissions/:id", h.auth.OptionalAuth(), h.handleGetSubmission)

	if version != "v2" {
		// Deprecated write path: the original backend sunset v1 writes
		// once v2's field manifest became mandatory for new entries.
		group.POST("/submissions", func(c *gin.Context) { c.JSON(http.StatusGone, gin.H{"error": "this endpoint has been deprecated, use /api/v2/submissions"}) })
	} else {
		group.POST("/submissions", limiter.Middleware(), h.auth.RequireAuth(), h.handleCreateSubmission(schemaVersion))
	}
	group.PUT("/submissions/:id", limiter.Middleware(), h.auth.RequireAuth(), h.handleUpdateSubmission(schemaVersion))
	group.POST("/upload-image", limiter.Middleware(), h.auth.RequireAuth(), h.handleUploadImage(schemaVersion))
}

// registerAliasRoutes mounts the latest (v2) handlers under the
// unversioned /api prefix, per §4.11's "latest-version aliases ...
// delegate to v2".
func registerAliasRoutes(r *gin.Engine, h *Handler, limiter *RateLimiter) {
	group := r.Group("/api")
	group.GET("/submissions", h.handleListSubmissions)
	group.GET("/submissions/:id", h.auth.OptionalAuth(), h.handleGetSubmission)
	group.POST("/submissions", limiter.Middleware(), h.auth.RequireAuth(), h.handleCreateSubmission(models.SchemaV2))
	group.PUT("/submissions/:id", limiter.Middleware(), h.auth.RequireAuth(), h.handleUpdateSubmission(models.SchemaV2))
}

func registerUnversionedRoutes(r *gin.Engine, h *Handler, limiter *RateLimiter) {
	api := r.Group("/api")
	{
		api.POST("/upload-image", limiter.Middleware(), h.auth.RequireAuth(), h.handleUploadImage(models.SchemaV2))
		api.GET("/uploads/:filename", h.handleServeUpload)
		api.GET("/leaderboard", h.handleLeaderboard)
		api.GET("/stats", h.handleStats)
		api.GET("/submission-schema", h.handleSubmissionSchema)
		api.GET("/feedback/:id", h.handleFeedback)
		api.POST("/submissions/:id/like-dislike", h.auth.RequireAuth(), h.handleToggleLikeDislike)
		api.GET("/submissions/:id/like-dislike", h.auth.OptionalAuth(), h.handleLikeDislikeCounts)
		api.GET("/community-scores", h.handleCommunityScores)
		api.GET("/community-votes/stats", h.handleCommunityVoteStats)
		api.GET("/prize-pool", h.handlePrizePool)
		api.GET("/config", h.handleConfig)

		api.GET("/auth/discord/login", h.handleDiscordLogin)
		api.POST("/auth/discord/callback", h.handleDiscordCallback)
	}

	r.GET("/ws/prize-pool", h.handlePrizePoolStream)

	webhook := r.Group("/webhook")
	{
		webhook.POST("/helius", h.handleHeliusWebhook)
		webhook.POST("/test", h.handleTestWebhook)
	}
}

func (h *Handler) handleDiscordLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auth_url": h.auth.LoginURL()})
}

func (h *Handler) handleDiscordCallback(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	user, session, err := h.auth.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "access_token": session})
}

// corsMiddleware mirrors the teacher's allowed-origins handling,
// generalized only in name.
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
