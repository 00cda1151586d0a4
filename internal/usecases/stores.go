package usecases

import (
	"context"
	"time"

	"supportdesk/internal/entities"
	"supportdesk/internal/repository"
)

// Store interfaces are satisfied by the postgres repositories.

type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetAllUsers(ctx context.Context) ([]entities.User, error)
	UpdateUserStatus(ctx context.Context, id int64, active bool) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	GetStats(ctx context.Context) (entities.UserStats, error)
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	ListSettings(ctx context.Context) ([]entities.Setting, error)
}

type CustomerStore interface {
	List(ctx context.Context, f entities.CustomerFilter) ([]entities.Customer, int, error)
	ListForBoard(ctx context.Context) ([]entities.Customer, error)
	Get(ctx context.Context, id int64) (*entities.Customer, error)
	FindByContact(ctx context.Context, email, phone string) (*entities.Customer, error)
	Create(ctx context.Context, c *entities.Customer) error
	CreateMany(ctx context.Context, customers []entities.Customer) (int, error)
	Update(ctx context.Context, id int64, p entities.CustomerPatch) (*entities.Customer, error)
	Move(ctx context.Context, id int64, stage entities.Stage, position int) (*entities.Customer, entities.Stage, error)
	Delete(ctx context.Context, id int64) error
}

type ConversationStore interface {
	List(ctx context.Context, f entities.ConversationFilter) ([]entities.Conversation, int, error)
	Get(ctx context.Context, id int64) (*entities.Conversation, error)
	FindActiveByRef(ctx context.Context, channel entities.Channel, ref string) (*entities.Conversation, error)
	Create(ctx context.Context, c *entities.Conversation) error
	Update(ctx context.Context, id int64, p entities.ConversationPatch) (*entities.Conversation, error)
	SetAIResult(ctx context.Context, id int64, confidence float64, status entities.ConversationStatus) error
	Delete(ctx context.Context, id int64) error
}

type MessageStore interface {
	Create(ctx context.Context, m *entities.Message) error
	ListByConversation(ctx context.Context, conversationID int64) ([]entities.Message, error)
}

type AgentStore interface {
	List(ctx context.Context) ([]entities.Agent, error)
	Get(ctx context.Context, id int64) (*entities.Agent, error)
	Create(ctx context.Context, a *entities.Agent) error
	Update(ctx context.Context, a *entities.Agent) error
	Delete(ctx context.Context, id int64) error
}

type KnowledgeStore interface {
	ListBases(ctx context.Context) ([]entities.KnowledgeBase, error)
	GetBase(ctx context.Context, id int64) (*entities.KnowledgeBase, error)
	CreateBase(ctx context.Context, kb *entities.KnowledgeBase) error
	DeleteBase(ctx context.Context, id int64) ([]string, error)
	ListDocuments(ctx context.Context, kbID int64) ([]entities.Document, error)
	SearchDocuments(ctx context.Context, kbID int64, query string, limit int) ([]entities.Document, error)
	CreateDocument(ctx context.Context, d *entities.Document) error
	DeleteDocument(ctx context.Context, kbID, id int64) (string, error)
}

type WebhookStore interface {
	Create(ctx context.Context, e *entities.WebhookEvent) error
	Get(ctx context.Context, id string) (*entities.WebhookEvent, error)
	List(ctx context.Context, status entities.WebhookStatus, limit int) ([]entities.WebhookEvent, error)
	RecordAttempt(ctx context.Context, id string, res entities.DeliveryResult) (*entities.WebhookEvent, error)
}

type AnalyticsStore interface {
	ConversationBreakdown(ctx context.Context, since time.Time) (map[entities.ConversationStatus]int, map[entities.Channel]int, *float64, error)
	CountEvents(ctx context.Context, eventType string, since time.Time) (int, error)
	DailyMessages(ctx context.Context, since time.Time) ([]entities.DailyVolume, error)
	FunnelSummary(ctx context.Context) ([]entities.StageSummary, error)
	NewCustomers(ctx context.Context, since time.Time) (int, error)
}

type RowStore interface {
	Select(ctx context.Context, table string, q repository.RowQuery) ([]map[string]any, error)
	Insert(ctx context.Context, table string, data map[string]any) (map[string]any, error)
	Update(ctx context.Context, table, key string, data map[string]any) (map[string]any, error)
	Delete(ctx context.Context, table, key string) error
}

// EventRecorder stores a webhook event for later relay.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, payload any) (*entities.WebhookEvent, error)
}

var (
	_ UserStore         = (*repository.UserRepository)(nil)
	_ SettingsStore     = (*repository.SettingsRepository)(nil)
	_ CustomerStore     = (*repository.CustomerRepository)(nil)
	_ ConversationStore = (*repository.ConversationRepository)(nil)
	_ MessageStore      = (*repository.MessageRepository)(nil)
	_ AgentStore        = (*repository.AgentRepository)(nil)
	_ KnowledgeStore    = (*repository.KnowledgeRepository)(nil)
	_ WebhookStore      = (*repository.WebhookRepository)(nil)
	_ AnalyticsStore    = (*repository.AnalyticsRepository)(nil)
	_ RowStore          = (*repository.TableGateway)(nil)
)
