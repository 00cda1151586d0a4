package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"supportdesk/internal/entities"
)

// ConversationLocker serializes chat turns per conversation. duplicate
// reports a repeat of the last submitted content within the debounce window.
type ConversationLocker interface {
	TryAcquire(conversationID int64, content string) (acquired, duplicate bool)
	Release(conversationID int64)
}

type ChatRequest struct {
	ConversationID *int64           `json:"conversation_id"`
	CustomerID     *int64           `json:"customer_id"`
	AgentID        *int64           `json:"agent_id"`
	Channel        entities.Channel `json:"channel"`
	ExternalRef    string           `json:"external_ref"`
	CustomerName   string           `json:"customer_name"`
	CustomerEmail  string           `json:"customer_email"`
	Message        string           `json:"message"`

	// Widget marks anonymous website requests. They may only continue web
	// conversations started with the same ExternalRef.
	Widget bool `json:"-"`
}

type ChatResponse struct {
	ConversationID int64   `json:"conversation_id"`
	Reply          string  `json:"reply"`
	Confidence     float64 `json:"confidence"`
	Escalated      bool    `json:"escalated"`
	AgentID        *int64  `json:"agent_id"`
}

const maxSearchTerms = 5

// ChatService answers customer messages with the simulated agent.
type ChatService struct {
	conversations ConversationStore
	messages      MessageStore
	customers     CustomerStore
	agents        AgentStore
	knowledge     KnowledgeStore
	settings      SettingsStore
	events        EventRecorder
	locks         ConversationLocker
	formatter     *ContentFormatter
	logger        *slog.Logger
}

type ChatDeps struct {
	Conversations ConversationStore
	Messages      MessageStore
	Customers     CustomerStore
	Agents        AgentStore
	Knowledge     KnowledgeStore
	Settings      SettingsStore
	Events        EventRecorder
	Locks         ConversationLocker
	Formatter     *ContentFormatter
	Logger        *slog.Logger
}

func NewChatService(d ChatDeps) *ChatService {
	return &ChatService{
		conversations: d.Conversations,
		messages:      d.Messages,
		customers:     d.Customers,
		agents:        d.Agents,
		knowledge:     d.Knowledge,
		settings:      d.Settings,
		events:        d.Events,
		locks:         d.Locks,
		formatter:     d.Formatter,
		logger:        d.Logger,
	}
}

// Handle runs one chat turn: store the customer message, pick a canned reply,
// store it and escalate when confidence is below the agent threshold.
func (s *ChatService) Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	text := s.formatter.Clean(req.Message)
	if !ValidateLength(text, 1, MaxMessageLength) {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", entities.ErrInvalidInput, MaxMessageLength)
	}
	if req.Channel == "" {
		req.Channel = entities.ChannelWeb
	}
	if !req.Channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", entities.ErrInvalidInput, req.Channel)
	}
	req.ExternalRef = strings.TrimSpace(SanitizeString(req.ExternalRef))

	conv, err := s.findConversation(ctx, req)
	if err != nil {
		return nil, err
	}
	agent, err := s.resolveAgent(ctx, req.AgentID, conv)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		if conv, err = s.startConversation(ctx, req, agent, text); err != nil {
			return nil, err
		}
	}

	in := entities.Message{ConversationID: conv.ID, Sender: entities.SenderCustomer, Content: text}
	acquired, duplicate := s.locks.TryAcquire(conv.ID, text)
	if duplicate {
		return nil, fmt.Errorf("conversation %d: repeated message: %w", conv.ID, entities.ErrConversationBusy)
	}
	if !acquired {
		// Messaging channels cannot resubmit, so keep the message for the
		// inbox without answering it.
		if req.Channel != entities.ChannelWeb {
			if err := s.messages.Create(ctx, &in); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("conversation %d: %w", conv.ID, entities.ErrConversationBusy)
	}
	defer s.locks.Release(conv.ID)

	if err := s.messages.Create(ctx, &in); err != nil {
		return nil, err
	}

	doc, keyword := s.lookupKnowledge(ctx, agent, text)
	reply := Respond(agent, text, doc, keyword)

	confidence := reply.Confidence
	out := entities.Message{ConversationID: conv.ID, Sender: entities.SenderAI, Content: reply.Text, Confidence: &confidence}
	if err := s.messages.Create(ctx, &out); err != nil {
		return nil, err
	}

	escalated := reply.Confidence < agent.ConfidenceThreshold
	var status entities.ConversationStatus
	switch {
	case escalated:
		status = entities.StatusPending
	case conv.Status == entities.StatusResolved || conv.Status == entities.StatusClosed:
		status = entities.StatusOpen
	}
	if err := s.conversations.SetAIResult(ctx, conv.ID, reply.Confidence, status); err != nil {
		return nil, err
	}
	if status != "" && status != conv.Status {
		recordEvent(ctx, s.events, s.logger, entities.EventConversationStatusChanged, map[string]any{
			"conversation_id": conv.ID,
			"customer_id":     conv.CustomerID,
			"from":            conv.Status,
			"to":              status,
		})
	}

	if escalated {
		recordEvent(ctx, s.events, s.logger, entities.EventConversationEscalated, map[string]any{
			"conversation_id": conv.ID,
			"customer_id":     conv.CustomerID,
			"channel":         conv.Channel,
			"confidence":      reply.Confidence,
			"threshold":       agent.ConfidenceThreshold,
			"message":         text,
		})
	}

	s.logger.Debug("chat turn",
		"conversation_id", conv.ID,
		"rule", reply.Rule,
		"confidence", reply.Confidence,
		"escalated", escalated,
	)

	var agentID *int64
	if agent.ID > 0 {
		id := agent.ID
		agentID = &id
	}
	return &ChatResponse{
		ConversationID: conv.ID,
		Reply:          reply.Text,
		Confidence:     reply.Confidence,
		Escalated:      escalated,
		AgentID:        agentID,
	}, nil
}

func (s *ChatService) findConversation(ctx context.Context, req ChatRequest) (*entities.Conversation, error) {
	if req.ConversationID != nil {
		conv, err := s.conversations.Get(ctx, *req.ConversationID)
		if err != nil {
			return nil, err
		}
		if req.Widget && (conv.Channel != entities.ChannelWeb || req.ExternalRef == "" || conv.ExternalRef != req.ExternalRef) {
			return nil, fmt.Errorf("conversation %d: %w", conv.ID, entities.ErrNotFound)
		}
		return conv, nil
	}
	if req.ExternalRef != "" {
		return s.conversations.FindActiveByRef(ctx, req.Channel, req.ExternalRef)
	}
	return nil, nil
}

// resolveAgent picks the explicit agent, then the conversation's agent, then
// the default_agent_id setting, then the built-in default.
func (s *ChatService) resolveAgent(ctx context.Context, explicit *int64, conv *entities.Conversation) (entities.Agent, error) {
	if explicit != nil {
		a, err := s.agents.Get(ctx, *explicit)
		if errors.Is(err, entities.ErrNotFound) {
			return entities.Agent{}, fmt.Errorf("%w: agent %d does not exist", entities.ErrInvalidInput, *explicit)
		}
		if err != nil {
			return entities.Agent{}, err
		}
		if !a.IsActive {
			return entities.Agent{}, fmt.Errorf("%w: agent %d is not active", entities.ErrInvalidInput, *explicit)
		}
		return *a, nil
	}

	if conv != nil && conv.AgentID != nil {
		if a := s.activeAgent(ctx, *conv.AgentID); a != nil {
			return *a, nil
		}
	}

	raw, err := s.settings.GetSetting(ctx, entities.SettingDefaultAgentID)
	if err != nil {
		return entities.Agent{}, err
	}
	if raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if a := s.activeAgent(ctx, id); a != nil {
				return *a, nil
			}
		} else {
			s.logger.Warn("ignoring malformed default_agent_id", "value", raw)
		}
	}
	return entities.DefaultAgent(), nil
}

func (s *ChatService) activeAgent(ctx context.Context, id int64) *entities.Agent {
	a, err := s.agents.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			s.logger.Warn("failed to load agent", "agent_id", id, "error", err)
		}
		return nil
	}
	if !a.IsActive {
		return nil
	}
	return a
}

func (s *ChatService) startConversation(ctx context.Context, req ChatRequest, agent entities.Agent, text string) (*entities.Conversation, error) {
	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	subject := []rune(text)
	if len(subject) > 80 {
		subject = subject[:80]
	}
	conv := &entities.Conversation{
		CustomerID:  customer.ID,
		Channel:     req.Channel,
		Status:      entities.StatusOpen,
		Subject:     string(subject),
		ExternalRef: req.ExternalRef,
	}
	if agent.ID > 0 {
		id := agent.ID
		conv.AgentID = &id
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	recordEvent(ctx, s.events, s.logger, entities.EventConversationCreated, map[string]any{
		"conversation_id": conv.ID,
		"customer_id":     conv.CustomerID,
		"channel":         conv.Channel,
		"subject":         conv.Subject,
	})
	return conv, nil
}

func (s *ChatService) resolveCustomer(ctx context.Context, req ChatRequest) (*entities.Customer, error) {
	if req.CustomerID != nil {
		c, err := s.customers.Get(ctx, *req.CustomerID)
		if errors.Is(err, entities.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d does not exist", entities.ErrInvalidInput, *req.CustomerID)
		}
		return c, err
	}

	email := strings.TrimSpace(req.CustomerEmail)
	phone := ""
	if req.Channel == entities.ChannelWhatsApp {
		phone = req.ExternalRef
	}
	existing, err := s.customers.FindByContact(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = "Website visitor"
		if req.Channel != entities.ChannelWeb {
			name = strings.ToUpper(string(req.Channel[:1])) + string(req.Channel[1:]) + " contact"
		}
	}
	c := &entities.Customer{
		Name:  name,
		Email: email,
		Phone: phone,
		Stage: entities.StageLead,
		Tags:  []string{string(req.Channel)},
	}
	if err := normalizeCustomer(c); err != nil {
		return nil, err
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// lookupKnowledge searches the agent's knowledge base term by term and
// returns the first document found with the term that matched.
func (s *ChatService) lookupKnowledge(ctx context.Context, agent entities.Agent, text string) (*entities.Document, string) {
	if agent.KnowledgeBaseID == nil || s.knowledge == nil {
		return nil, ""
	}
	for _, term := range SearchTerms(text, maxSearchTerms) {
		docs, err := s.knowledge.SearchDocuments(ctx, *agent.KnowledgeBaseID, term, 1)
		if err != nil {
			s.logger.Warn("knowledge search failed", "knowledge_base_id", *agent.KnowledgeBaseID, "error", err)
			return nil, ""
		}
		if len(docs) > 0 {
			return &docs[0], term
		}
	}
	return nil, ""
}
