package entities

import "time"

type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelWeb, ChannelWhatsApp, ChannelTelegram, ChannelEmail}

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelWhatsApp, ChannelTelegram, ChannelEmail:
		return true
	}
	return false
}

type ConversationStatus string

const (
	StatusOpen     ConversationStatus = "open"
	StatusPending  ConversationStatus = "pending"
	StatusResolved ConversationStatus = "resolved"
	StatusClosed   ConversationStatus = "closed"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Conversation struct {
	ID            int64              `json:"id"`
	CustomerID    int64              `json:"customer_id"`
	CustomerName  string             `json:"customer_name,omitempty"`
	AgentID       *int64             `json:"agent_id"`
	AssigneeID    *int64             `json:"assignee_id"`
	Channel       Channel            `json:"channel"`
	Status        ConversationStatus `json:"status"`
	Subject       string             `json:"subject"`
	AIConfidence  *float64           `json:"ai_confidence"`
	ExternalRef   string             `json:"external_ref"`
	LastMessageAt time.Time          `json:"last_message_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type ConversationFilter struct {
	Status     ConversationStatus
	Channel    Channel
	AssigneeID *int64
	Search     string
	Limit      int
	Offset     int
}

// ConversationPatch holds the fields to change; nil means unchanged.
type ConversationPatch struct {
	Status        *ConversationStatus `json:"status"`
	AssigneeID    *int64              `json:"assignee_id"`
	ClearAssignee bool                `json:"clear_assignee"`
	AgentID       *int64              `json:"agent_id"`
	Subject       *string             `json:"subject"`
}

func (p ConversationPatch) Empty() bool {
	return p.Status == nil && p.AssigneeID == nil && !p.ClearAssignee && p.AgentID == nil && p.Subject == nil
}

// ConversationDetail is the detail pane payload.
type ConversationDetail struct {
	Conversation
	Customer *Customer `json:"customer"`
	Messages []Message `json:"messages"`
}
