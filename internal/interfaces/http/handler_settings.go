package http

import (
	"encoding/json"
	"net/http"

	"supportdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.svc.Settings.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := h.svc.Settings.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func (h *Handler) SetSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if !bindJSON(c, &req) {
		return
	}
	key := c.Param("key")
	if err := h.svc.Settings.Set(c.Request.Context(), key, req.Value); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "key": key})
}

func (h *Handler) DeleteSetting(c *gin.Context) {
	if err := h.svc.Settings.Delete(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListWebhookEvents(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	events, err := h.svc.Webhooks.List(c.Request.Context(), entities.WebhookStatus(c.Query("status")), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetWebhookEvent(c *gin.Context) {
	event, err := h.svc.Webhooks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) CreateWebhookEvent(c *gin.Context) {
	var req struct {
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.svc.Webhooks.CreateEvent(c.Request.Context(), req.EventType, req.Payload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *Handler) RelayWebhookEvent(c *gin.Context) {
	h.relay(c, c.Param("id"))
}

func (h *Handler) RelayWebhook(c *gin.Context) {
	var req struct {
		EventID string `json:"event_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.EventID == "" {
		badRequest(c, "event_id is required")
		return
	}
	h.relay(c, req.EventID)
}

// relay answers 200 with the updated event whether or not the destination
// accepted it; the delivery outcome is in the event status.
func (h *Handler) relay(c *gin.Context, id string) {
	event, err := h.svc.Webhooks.Relay(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"delivered": event.Status == entities.WebhookDelivered,
		"event":     event,
	})
}
