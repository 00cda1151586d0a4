package entities

import (
	"encoding/json"
	"time"
)

type WebhookStatus string

const (
	WebhookPending   WebhookStatus = "pending"
	WebhookDelivered WebhookStatus = "delivered"
	WebhookFailed    WebhookStatus = "failed"
)

// Event types recorded by the application.
const (
	EventConversationCreated       = "conversation.created"
	EventConversationEscalated     = "conversation.escalated"
	EventConversationStatusChanged = "conversation.status_changed"
	EventCustomerStageChanged      = "customer.stage_changed"
)

type WebhookEvent struct {
	ID             string          `json:"id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	Status         WebhookStatus   `json:"status"`
	Attempts       int             `json:"attempts"`
	ResponseStatus *int            `json:"response_status"`
	LastError      string          `json:"last_error"`
	DeliveredAt    *time.Time      `json:"delivered_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DeliveryResult is the outcome of one relay attempt.
type DeliveryResult struct {
	Delivered      bool
	ResponseStatus int
	Error          string
}
