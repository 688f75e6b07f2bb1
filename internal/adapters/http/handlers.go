package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/auth"
	"github.com/telecord/telecord/internal/config"
	"github.com/telecord/telecord/internal/storage"
)

// Handlers is the REST CRUD surface around the signaling core.
type Handlers struct {
	Store  *storage.Store
	Tokens *auth.TokenIssuer
	Cfg    *config.Config
}

func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, storage.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("storage error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Profile upserts the caller's profile and issues a session token for
// the signal WebSocket.
func (h *Handlers) Profile(c *gin.Context) {
	user := currentUser(c)

	stored, status, err := h.Store.UpsertUser(c.Request.Context(), user)
	if err != nil {
		storeError(c, err)
		return
	}

	token, err := h.Tokens.Issue(stored)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         stored.ID,
		"username":   stored.DisplayName(),
		"first_name": stored.FirstName,
		"last_name":  stored.LastName,
		"avatar":     stored.Avatar,
		"status":     status,
		"token":      token,
	})
}

func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing status"})
		return
	}
	user := currentUser(c)
	if err := h.Store.UpdateStatus(c.Request.Context(), user.ID, req.Status); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
}

func (h *Handlers) ListServers(c *gin.Context) {
	user := currentUser(c)
	servers, err := h.Store.ListServers(c.Request.Context(), user.ID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, servers)
}

func (h *Handlers) CreateServer(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	user := currentUser(c)
	server, err := h.Store.CreateServer(c.Request.Context(), user.ID, req.Name, req.Description)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, server)
}

func (h *Handlers) JoinServer(c *gin.Context) {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := c.BindJSON(&req); err != nil || req.InviteCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing inviteCode"})
		return
	}
	user := currentUser(c)
	server, err := h.Store.JoinServerByInvite(c.Request.Context(), user.ID, req.InviteCode)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "server": server})
}

func (h *Handlers) ListChannels(c *gin.Context) {
	serverID, err := strconv.ParseInt(c.Param("serverId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	user := currentUser(c)
	channels, err := h.Store.ListChannels(c.Request.Context(), serverID, user.ID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (h *Handlers) CreateChannel(c *gin.Context) {
	serverID, err := strconv.ParseInt(c.Param("serverId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return
	}
	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := c.BindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	user := currentUser(c)
	channel, err := h.Store.CreateChannel(c.Request.Context(), serverID, user.ID, req.Name, req.Type)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channel)
}

func (h *Handlers) JoinChannel(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	user := currentUser(c)
	channel, err := h.Store.JoinChannel(c.Request.Context(), channelID, user.ID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "channel": channel})
}

func (h *Handlers) ChannelMembers(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	user := currentUser(c)
	members, err := h.Store.ChannelMembers(c.Request.Context(), channelID, user.ID)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// RTCConfig hands clients the ICE servers for their PeerConnections.
// Audio never touches this server; this is the only RTC surface here.
func (h *Handlers) RTCConfig(c *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, len(h.Cfg.STUNServers))
	for _, u := range h.Cfg.STUNServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
