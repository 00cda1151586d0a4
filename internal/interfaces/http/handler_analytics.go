package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetOverview(c *gin.Context) {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	overview, err := h.svc.Analytics.Overview(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// SelectRows serves GET /api/rest/:table?col=value&order=col.desc&limit=&offset=
func (h *Handler) SelectRows(c *gin.Context) {
	rows, err := h.svc.Rest.Select(c.Request.Context(), c.Param("table"), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) InsertRow(c *gin.Context) {
	var data map[string]any
	if !bindJSON(c, &data) {
		return
	}
	row, err := h.svc.Rest.Insert(c.Request.Context(), c.Param("table"), data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *Handler) UpdateRow(c *gin.Context) {
	var data map[string]any
	if !bindJSON(c, &data) {
		return
	}
	row, err := h.svc.Rest.Update(c.Request.Context(), c.Param("table"), c.Param("id"), data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) DeleteRow(c *gin.Context) {
	if err := h.svc.Rest.Delete(c.Request.Context(), c.Param("table"), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
