package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/voxa-signaling/config"
	"github.com/mossy-p/voxa-signaling/internal/metrics"
	"github.com/mossy-p/voxa-signaling/internal/middleware"
	"github.com/mossy-p/voxa-signaling/internal/relay"
)

const livenessBanner = "Voxa signaling server is live."

// Deps are the collaborators the router wires into handlers. Metrics and
// Presence are optional.
type Deps struct {
	Config   *config.Config
	Relay    *relay.Relay
	Metrics  *metrics.Metrics
	Presence PresenceReader
}

// NewRouter builds the HTTP surface: the signaling WebSocket, liveness
// probes, metrics, and the operator API.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(d.Config.AllowedOrigins))

	// Liveness
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, livenessBanner)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// WebSocket signaling
	signaling := NewSignalingHandler(d.Relay, d.Config)
	router.GET("/ws", signaling.HandleSignaling)
	router.GET("/ws/signal", signaling.HandleSignaling)

	apiGroup := router.Group("/api")
	{
		// Public tag lookup
		apiGroup.GET("/tags/:tag", GetTag(d.Relay))

		// Operator login (public)
		apiGroup.POST("/auth/login", Login(d.Config.JWTSecret, d.Config.AdminPassword))

		admin := NewAdminHandler(d.Relay, d.Presence)
		adminGroup := apiGroup.Group("/admin", middleware.JWTAuth(d.Config.JWTSecret))
		adminGroup.GET("/stats", admin.GetStats)
		adminGroup.GET("/sessions", admin.ListSessions)
		adminGroup.DELETE("/sessions/:sessionId", admin.DeleteSession)
		adminGroup.GET("/presence", admin.GetPresence)
		adminGroup.GET("/presence/sessions/:sessionId", admin.GetPresenceSession)
	}

	return router
}
