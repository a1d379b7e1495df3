package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
)

// GetTag reports how many clients are waiting under a tag (public)
func GetTag(r *relay.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := c.Param("tag")
		c.JSON(http.StatusOK, models.TagStatus{
			Tag:     tag,
			Waiting: r.Waiting(tag),
		})
	}
}
