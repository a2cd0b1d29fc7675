package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/storage/sqlite"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and reports the previous last-login
// timestamp so the caller can show what changed since the user was last
// here. There is no token issuance; the caller keeps the display name as
// its own session marker.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := s.store.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, sqlite.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"displayName": user.DisplayName,
			"lastLogin":   user.LastLogin,
		},
	})
}
