package entities

import "time"

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderAI       Sender = "ai"
	SenderSystem   Sender = "system"
)

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	HTML           string    `json:"html,omitempty"` // Rendered markdown, detail view only
	Confidence     *float64  `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}
