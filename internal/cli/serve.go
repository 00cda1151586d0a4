package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"
	httpapi "supportdesk/internal/interfaces/http"
	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and channel pollers",
	Long: `Migrates the schema, makes sure the bootstrap admin exists and serves the
JSON API until SIGINT or SIGTERM.

Redis, MinIO, Telegram and WhatsApp are optional; each is enabled when its
settings are present.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := rt.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready")

	// Optional backends stay as nil interfaces when unavailable.
	var cache interfaces.Cache
	if cfg.RedisAddr != "" {
		rc, err := infrastructure.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	var objects interfaces.ObjectStore
	if cfg.MinioEndpoint != "" {
		store, err := infrastructure.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Warn("minio unavailable, documents kept in database only", "endpoint", cfg.MinioEndpoint, "error", err)
		} else {
			objects = store
		}
	}

	pool := rt.db.Pool
	users := repository.NewUserRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	customersRepo := repository.NewCustomerRepository(pool)
	conversationsRepo := repository.NewConversationRepository(pool)
	messagesRepo := repository.NewMessageRepository(pool)
	agentsRepo := repository.NewAgentRepository(pool)
	knowledgeRepo := repository.NewKnowledgeRepository(pool)

	formatter := usecases.NewContentFormatter()
	relay := usecases.NewWebhookRelay(repository.NewWebhookRepository(pool), settingsRepo, cfg.WebhookTimeout, logger)
	auth := usecases.NewAuthUsecase(users, cfg.JWTSecret, cfg.AllowRegistration, logger)
	conversations := usecases.NewConversationUsecase(conversationsRepo, messagesRepo, customersRepo, relay, formatter, logger)
	chat := usecases.NewChatService(usecases.ChatDeps{
		Conversations: conversationsRepo,
		Messages:      messagesRepo,
		Customers:     customersRepo,
		Agents:        agentsRepo,
		Knowledge:     knowledgeRepo,
		Settings:      settingsRepo,
		Events:        relay,
		Locks:         infrastructure.NewConversationLocks(500 * time.Millisecond),
		Formatter:     formatter,
		Logger:        logger,
	})

	if err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	channels := httpapi.NewChannelsHandler(logger)
	var workers sync.WaitGroup
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer func() {
		stopPolling()
		workers.Wait()
	}()

	if cfg.TelegramBotToken != "" {
		tg, err := infrastructure.NewTelegramClient(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("telegram disabled", "error", err)
		} else {
			conversations.RegisterMessenger(entities.ChannelTelegram, tg)
			channels.Register(httpapi.ChannelInfo{
				Channel: entities.ChannelTelegram,
				Inbound: true,
				Account: "@" + tg.Bot.Self.UserName,
			}, tg)
			poller := infrastructure.NewTelegramPoller(tg, inboundChat(chat, entities.ChannelTelegram, logger), logger)
			workers.Add(1)
			go func() {
				defer workers.Done()
				poller.Run(pollCtx)
			}()
		}
	} else {
		logger.Info("telegram not configured")
	}

	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		wa := infrastructure.NewWhatsAppCloudClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID)
		conversations.RegisterMessenger(entities.ChannelWhatsApp, wa)
		channels.Register(httpapi.ChannelInfo{
			Channel: entities.ChannelWhatsApp,
			Account: cfg.WhatsAppPhoneNumberID,
		}, wa)
	} else {
		logger.Info("whatsapp not configured")
	}

	perUser := infrastructure.NewKeyedRateLimiter(rate.Limit(5), 20, time.Minute, 10*time.Minute)
	defer perUser.Stop()
	perIP := infrastructure.NewKeyedRateLimiter(rate.Limit(2), 10, time.Minute, 10*time.Minute)
	defer perIP.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), httpapi.CORS(cfg.CORSOrigins))
	httpapi.SetupRoutes(router, httpapi.Services{
		Auth:          auth,
		Settings:      usecases.NewSettingsUsecase(settingsRepo),
		Customers:     usecases.NewCustomerUsecase(customersRepo, relay, logger),
		Conversations: conversations,
		Agents:        usecases.NewAgentUsecase(agentsRepo, settingsRepo, logger),
		Knowledge:     usecases.NewKnowledgeUsecase(knowledgeRepo, objects, logger),
		Chat:          chat,
		Webhooks:      relay,
		Analytics:     usecases.NewAnalyticsUsecase(repository.NewAnalyticsRepository(pool), cache, logger),
		Rest:          usecases.NewRestUsecase(repository.NewTableGateway(pool)),
		Channels:      channels,
	}, httpapi.Limiters{PerUser: perUser, PerIP: perIP}, httpapi.NewMiddleware(cfg.JWTSecret, logger), logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	return nil
}

// inboundChat answers channel messages through the chat service. A message
// arriving while the previous turn is still being answered is stored without
// a reply; an immediate repeat is ignored.
func inboundChat(chat *usecases.ChatService, ch entities.Channel, logger *slog.Logger) infrastructure.InboundHandler {
	return func(ctx context.Context, msg infrastructure.InboundMessage) (string, error) {
		resp, err := chat.Handle(ctx, usecases.ChatRequest{
			Channel:      ch,
			ExternalRef:  msg.ExternalRef,
			CustomerName: msg.DisplayName,
			Message:      msg.Text,
		})
		if errors.Is(err, entities.ErrConversationBusy) {
			logger.Debug("inbound not answered, conversation busy", "channel", ch, "ref", msg.ExternalRef)
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return resp.Reply, nil
	}
}
