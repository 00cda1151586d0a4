package http

import (
	"log/slog"
	"net/http"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/usecases"

	"github.com/gin-gonic/gin"
)

const maxRequestBytes = 10 << 20 // 10MB

// Services groups the usecases served over HTTP.
type Services struct {
	Auth          *usecases.AuthUsecase
	Settings      *usecases.SettingsUsecase
	Customers     *usecases.CustomerUsecase
	Conversations *usecases.ConversationUsecase
	Agents        *usecases.AgentUsecase
	Knowledge     *usecases.KnowledgeUsecase
	Chat          *usecases.ChatService
	Webhooks      *usecases.WebhookRelay
	Analytics     *usecases.AnalyticsUsecase
	Rest          *usecases.RestUsecase
	Channels      *ChannelsHandler
}

// Limiters are the keyed limiters applied to authenticated and public routes.
type Limiters struct {
	PerUser *infrastructure.KeyedRateLimiter
	PerIP   *infrastructure.KeyedRateLimiter
}

type Handler struct {
	svc    Services
	logger *slog.Logger
}

func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func SetupRoutes(r *gin.Engine, svc Services, limiters Limiters, middleware *Middleware, logger *slog.Logger) {
	h := NewHandler(svc, logger)
	admin := NewAdminHandler(svc.Auth, logger)

	r.Use(RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxRequestBytes))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public widget
	r.POST("/webhook/web", middleware.RateLimitPerIP(limiters.PerIP), h.HandleWebMessage)

	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.RateLimitPerIP(limiters.PerIP))
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(limiters.PerUser))
	{
		api.GET("/auth/me", h.Me)

		api.GET("/customers", h.ListCustomers)
		api.POST("/customers", h.CreateCustomer)
		api.POST("/customers/import", h.ImportCustomers)
		api.GET("/customers/:id", h.GetCustomer)
		api.PUT("/customers/:id", h.UpdateCustomer)
		api.DELETE("/customers/:id", h.DeleteCustomer)

		api.GET("/funnel/board", h.GetBoard)
		api.POST("/funnel/move", h.MoveCustomer)

		api.GET("/conversations", h.ListConversations)
		api.POST("/conversations", h.CreateConversation)
		api.GET("/conversations/:id", h.GetConversation)
		api.PUT("/conversations/:id", h.UpdateConversation)
		api.DELETE("/conversations/:id", h.DeleteConversation)
		api.POST("/conversations/:id/messages", h.PostAgentMessage)

		api.POST("/chat", h.Chat)

		api.GET("/agents", h.ListAgents)
		api.POST("/agents", h.CreateAgent)
		api.GET("/agents/:id", h.GetAgent)
		api.PUT("/agents/:id", h.UpdateAgent)
		api.DELETE("/agents/:id", h.DeleteAgent)

		api.GET("/knowledge-bases", h.ListKnowledgeBases)
		api.POST("/knowledge-bases", h.CreateKnowledgeBase)
		api.GET("/knowledge-bases/:id", h.GetKnowledgeBase)
		api.DELETE("/knowledge-bases/:id", h.DeleteKnowledgeBase)
		api.GET("/knowledge-bases/:id/documents", h.ListDocuments)
		api.POST("/knowledge-bases/:id/documents", h.AddDocument)
		api.DELETE("/knowledge-bases/:id/documents/:doc_id", h.DeleteDocument)
		api.GET("/knowledge-bases/:id/search", h.SearchDocuments)

		api.GET("/settings", h.ListSettings)
		api.GET("/settings/:key", h.GetSetting)
		api.PUT("/settings/:key", h.SetSetting)
		api.DELETE("/settings/:key", h.DeleteSetting)

		api.GET("/webhooks/events", h.ListWebhookEvents)
		api.POST("/webhooks/events", h.CreateWebhookEvent)
		api.GET("/webhooks/events/:id", h.GetWebhookEvent)
		api.POST("/webhooks/events/:id/relay", h.RelayWebhookEvent)
		api.POST("/webhooks/relay", h.RelayWebhook)

		api.GET("/analytics/overview", h.GetOverview)

		api.GET("/rest/:table", h.SelectRows)
		api.POST("/rest/:table", h.InsertRow)
		api.PATCH("/rest/:table/:id", h.UpdateRow)
		api.DELETE("/rest/:table/:id", h.DeleteRow)

		if svc.Channels != nil {
			svc.Channels.RegisterRoutes(api)
		}
	}

	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthRequired())
	adminGroup.Use(middleware.AdminRequired())
	{
		adminGroup.GET("/stats", admin.GetStats)
		adminGroup.GET("/users", admin.GetAllUsers)
		adminGroup.POST("/users", admin.CreateUser)
		adminGroup.PUT("/users/:id/status", admin.UpdateUserStatus)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	token, user, err := h.svc.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Register(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered", "user": user})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": currentUserID(c), "role": c.GetString(ctxRole)})
}

type webMessage struct {
	ConversationID *int64 `json:"conversation_id"`
	VisitorID      string `json:"visitor_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
}

// HandleWebMessage answers the public website widget. A visitor id keeps
// follow-up messages in the same conversation; a conversation_id is only
// honoured for web conversations started by that visitor.
func (h *Handler) HandleWebMessage(c *gin.Context) {
	var payload webMessage
	if !bindJSON(c, &payload) {
		return
	}
	if len(payload.VisitorID) > 128 {
		badRequest(c, "visitor_id is too long")
		return
	}

	resp, err := h.svc.Chat.Handle(c.Request.Context(), usecases.ChatRequest{
		ConversationID: payload.ConversationID,
		Channel:        entities.ChannelWeb,
		ExternalRef:    payload.VisitorID,
		Widget:         true,
		CustomerName:   payload.Name,
		CustomerEmail:  payload.Email,
		Message:        payload.Message,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Chat(c *gin.Context) {
	var req usecases.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Chat.Handle(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
