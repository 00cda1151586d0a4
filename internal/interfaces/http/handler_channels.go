package http

import (
	"log/slog"
	"net/http"
	"sync"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"

	"github.com/gin-gonic/gin"
)

// ChannelInfo describes one messaging channel on the status page.
type ChannelInfo struct {
	Channel  entities.Channel `json:"channel"`
	Enabled  bool             `json:"enabled"`
	Inbound  bool             `json:"inbound"`
	Outbound bool             `json:"outbound"`
	Account  string           `json:"account,omitempty"`
}

// ChannelsHandler reports configured channels and sends test messages
// through their messengers.
type ChannelsHandler struct {
	mu         sync.RWMutex
	channels   map[entities.Channel]ChannelInfo
	messengers map[entities.Channel]interfaces.Messenger
	logger     *slog.Logger
}

func NewChannelsHandler(logger *slog.Logger) *ChannelsHandler {
	h := &ChannelsHandler{
		channels:   make(map[entities.Channel]ChannelInfo),
		messengers: make(map[entities.Channel]interfaces.Messenger),
		logger:     logger,
	}
	for _, ch := range entities.Channels {
		h.channels[ch] = ChannelInfo{Channel: ch}
	}
	// The widget is always served.
	h.channels[entities.ChannelWeb] = ChannelInfo{Channel: entities.ChannelWeb, Enabled: true, Inbound: true}
	return h
}

// Register marks a channel as enabled. A nil messenger means inbound only.
func (h *ChannelsHandler) Register(info ChannelInfo, m interfaces.Messenger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	info.Enabled = true
	info.Outbound = m != nil
	h.channels[info.Channel] = info
	if m != nil {
		h.messengers[info.Channel] = m
	}
}

// RegisterRoutes registers channel management routes
func (h *ChannelsHandler) RegisterRoutes(api *gin.RouterGroup) {
	ch := api.Group("/channels")
	{
		ch.GET("/status", h.GetStatus)
		ch.POST("/telegram/validate", h.ValidateTelegramToken)
		ch.POST("/:channel/test", h.SendTest)
	}
}

// GetStatus lists every channel in a stable order.
func (h *ChannelsHandler) GetStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ChannelInfo, 0, len(entities.Channels))
	for _, ch := range entities.Channels {
		out = append(out, h.channels[ch])
	}
	c.JSON(http.StatusOK, out)
}

// ValidateTelegramToken checks if a bot token is valid without saving it
func (h *ChannelsHandler) ValidateTelegramToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Token == "" {
		badRequest(c, "token is required")
		return
	}

	client, err := infrastructure.NewTelegramClient(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"bot_name": "@" + client.Bot.Self.UserName,
	})
}

// SendTest delivers a message to a recipient on an outbound channel.
func (h *ChannelsHandler) SendTest(c *gin.Context) {
	channel := entities.Channel(c.Param("channel"))
	h.mu.RLock()
	messenger, ok := h.messengers[channel]
	h.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel has no outbound messenger"})
		return
	}

	var req struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.To == "" || req.Text == "" {
		badRequest(c, "to and text are required")
		return
	}

	if err := messenger.SendMessage(c.Request.Context(), req.To, req.Text); err != nil {
		h.logger.Warn("test message failed", "channel", channel, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Delivery failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
