package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
}

// IssueToken resolves a username in the directory and returns a signed
// handshake token. It stands in for the platform's identity service; the
// realtime layer itself only ever validates tokens.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user, err := h.Storage.GetUserByUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "directory lookup failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}

	token, err := h.Auth.IssueToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID})
}

// ListPresence returns the current presence registry snapshot.
func (h *Handler) ListPresence(c *gin.Context) {
	entries := h.Presence.List()
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "users": entries})
}
