package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/voxa-signaling/internal/middleware"
	"github.com/rs/zerolog/log"
)

const operatorTokenTTL = 12 * time.Hour

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login issues operator tokens for the admin API. It is disabled when no
// admin password is configured.
func Login(jwtSecret, adminPassword string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminPassword == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Operator login is disabled",
			})
			return
		}

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(adminPassword)) != 1 {
			log.Warn().Str("module", "handlers.auth").Str("user", req.Username).Msg("operator login failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		tokenString, err := middleware.IssueToken(jwtSecret, req.Username, operatorTokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		log.Info().Str("module", "handlers.auth").Str("user", req.Username).Msg("operator logged in")
		c.JSON(http.StatusOK, LoginResponse{
			Token:  tokenString,
			UserID: req.Username,
		})
	}
}
