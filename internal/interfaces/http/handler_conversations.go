package http

import (
	"net/http"
	"strconv"

	"supportdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListConversations(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	filter := entities.ConversationFilter{
		Status:  entities.ConversationStatus(c.Query("status")),
		Channel: entities.Channel(c.Query("channel")),
		Search:  c.Query("search"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid assignee_id")
			return
		}
		filter.AssigneeID = &id
	}

	conversations, total, err := h.svc.Conversations.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page[entities.Conversation]{Items: conversations, Total: total})
}

func (h *Handler) GetConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Conversations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreateConversation(c *gin.Context) {
	var conv entities.Conversation
	if !bindJSON(c, &conv) {
		return
	}
	conv.ID = 0
	if err := h.svc.Conversations.Create(c.Request.Context(), &conv); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) UpdateConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch entities.ConversationPatch
	if !bindJSON(c, &patch) {
		return
	}
	conv, err := h.svc.Conversations.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Conversations.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) PostAgentMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.svc.Conversations.PostAgentMessage(c.Request.Context(), id, currentUserID(c), req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}
