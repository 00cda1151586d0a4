package http

import (
	"io"
	"net/http"
	"strings"

	"supportdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCustomers(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	customers, total, err := h.svc.Customers.List(c.Request.Context(), entities.CustomerFilter{
		Stage:  entities.Stage(c.Query("stage")),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page[entities.Customer]{Items: customers, Total: total})
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	customer, err := h.svc.Customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var customer entities.Customer
	if !bindJSON(c, &customer) {
		return
	}
	customer.ID = 0
	if err := h.svc.Customers.Create(c.Request.Context(), &customer); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch entities.CustomerPatch
	if !bindJSON(c, &patch) {
		return
	}
	customer, err := h.svc.Customers.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Customers.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ImportCustomers accepts a multipart "file" field or a raw text/csv body.
func (h *Handler) ImportCustomers(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "CSV file is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		defer f.Close()
		body = f
	}

	n, err := h.svc.Customers.ImportCSV(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": n})
}

func (h *Handler) GetBoard(c *gin.Context) {
	columns, err := h.svc.Customers.Board(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

type moveRequest struct {
	CustomerID int64          `json:"customer_id"`
	Stage      entities.Stage `json:"stage"`
	Position   int            `json:"position"`
}

func (h *Handler) MoveCustomer(c *gin.Context) {
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CustomerID <= 0 {
		badRequest(c, "customer_id is required")
		return
	}
	customer, err := h.svc.Customers.Move(c.Request.Context(), req.CustomerID, req.Stage, req.Position)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
