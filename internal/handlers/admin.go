package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/rs/zerolog/log"
)

// PresenceReader reads the cross-instance presence mirror
type PresenceReader interface {
	Snapshot(ctx context.Context) (models.PresenceSnapshot, error)
	Session(ctx context.Context, id string) (models.SessionInfo, bool, error)
}

// AdminHandler serves the operator API. Every route sits behind JWTAuth.
type AdminHandler struct {
	relay    *relay.Relay
	presence PresenceReader
}

// NewAdminHandler builds the operator API; presence may be nil when Redis is
// not configured.
func NewAdminHandler(r *relay.Relay, presence PresenceReader) *AdminHandler {
	return &AdminHandler{relay: r, presence: presence}
}

// GetStats returns connection, session and queue counts of this instance
func (h *AdminHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.Stats())
}

// ListSessions returns the live sessions of this instance, oldest first
func (h *AdminHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.relay.Sessions()})
}

// DeleteSession force-ends a session; both members receive peer-left
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if !h.relay.EndSession(sessionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	log.Info().
		Str("module", "handlers.admin").
		Str("session", sessionID).
		Str("user", c.GetString("user_id")).
		Msg("session evicted")

	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}

// GetPresence returns the aggregated presence of every instance
func (h *AdminHandler) GetPresence(c *gin.Context) {
	if h.presence == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Presence mirror not configured"})
		return
	}

	snap, err := h.presence.Snapshot(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "handlers.admin").Msg("failed to read presence")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read presence"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetPresenceSession looks a session up in the presence mirror, so operators
// can find sessions owned by other instances.
func (h *AdminHandler) GetPresenceSession(c *gin.Context) {
	if h.presence == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Presence mirror not configured"})
		return
	}

	info, ok, err := h.presence.Session(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		log.Error().Err(err).Str("module", "handlers.admin").Msg("failed to read presence")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read presence"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}
