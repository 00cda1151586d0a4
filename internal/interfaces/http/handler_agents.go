package http

import (
	"net/http"

	"supportdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.svc.Agents.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h *Handler) GetAgent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	agent, err := h.svc.Agents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// CreateAgent fills omitted fields from the built-in default agent.
func (h *Handler) CreateAgent(c *gin.Context) {
	agent := entities.DefaultAgent()
	agent.Name = ""
	if !bindJSON(c, &agent) {
		return
	}
	agent.ID = 0
	if err := h.svc.Agents.Create(c.Request.Context(), &agent); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// UpdateAgent decodes the body over the stored agent, so omitted fields keep
// their values.
func (h *Handler) UpdateAgent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	agent, err := h.svc.Agents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !bindJSON(c, agent) {
		return
	}
	agent.ID = id
	if err := h.svc.Agents.Update(c.Request.Context(), agent); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *Handler) DeleteAgent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Agents.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListKnowledgeBases(c *gin.Context) {
	bases, err := h.svc.Knowledge.ListBases(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bases)
}

func (h *Handler) GetKnowledgeBase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	kb, err := h.svc.Knowledge.GetBase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}

func (h *Handler) CreateKnowledgeBase(c *gin.Context) {
	var kb entities.KnowledgeBase
	if !bindJSON(c, &kb) {
		return
	}
	kb.ID = 0
	if err := h.svc.Knowledge.CreateBase(c.Request.Context(), &kb); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, kb)
}

func (h *Handler) DeleteKnowledgeBase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Knowledge.DeleteBase(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	docs, err := h.svc.Knowledge.ListDocuments(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) AddDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.svc.Knowledge.AddDocument(c.Request.Context(), id, req.Title, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	kbID, ok := paramID(c, "id")
	if !ok {
		return
	}
	docID, ok := paramID(c, "doc_id")
	if !ok {
		return
	}
	if err := h.svc.Knowledge.DeleteDocument(c.Request.Context(), kbID, docID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) SearchDocuments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	docs, err := h.svc.Knowledge.Search(c.Request.Context(), id, c.Query("q"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}
