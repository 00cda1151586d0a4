package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

type ConversationUsecase struct {
	conversations ConversationStore
	messages      MessageStore
	customers     CustomerStore
	events        EventRecorder
	formatter     *ContentFormatter
	messengers    map[entities.Channel]interfaces.Messenger
	logger        *slog.Logger
}

func NewConversationUsecase(
	conversations ConversationStore,
	messages MessageStore,
	customers CustomerStore,
	events EventRecorder,
	formatter *ContentFormatter,
	logger *slog.Logger,
) *ConversationUsecase {
	return &ConversationUsecase{
		conversations: conversations,
		messages:      messages,
		customers:     customers,
		events:        events,
		formatter:     formatter,
		messengers:    make(map[entities.Channel]interfaces.Messenger),
		logger:        logger,
	}
}

// RegisterMessenger enables outbound delivery for a channel.
func (uc *ConversationUsecase) RegisterMessenger(ch entities.Channel, m interfaces.Messenger) {
	uc.messengers[ch] = m
}

func (uc *ConversationUsecase) List(ctx context.Context, f entities.ConversationFilter) ([]entities.Conversation, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, f.Status)
	}
	if f.Channel != "" && !f.Channel.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown channel %q", entities.ErrInvalidInput, f.Channel)
	}
	f.Search = strings.TrimSpace(SanitizeString(f.Search))
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return uc.conversations.List(ctx, f)
}

// Get returns the conversation with its customer and rendered messages.
func (uc *ConversationUsecase) Get(ctx context.Context, id int64) (*entities.ConversationDetail, error) {
	conv, err := uc.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	customer, err := uc.customers.Get(ctx, conv.CustomerID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	msgs, err := uc.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].HTML = uc.formatter.RenderHTML(msgs[i].Content)
	}
	return &entities.ConversationDetail{Conversation: *conv, Customer: customer, Messages: msgs}, nil
}

func (uc *ConversationUsecase) Create(ctx context.Context, c *entities.Conversation) error {
	if c.CustomerID <= 0 {
		return fmt.Errorf("%w: customer_id is required", entities.ErrInvalidInput)
	}
	if c.Channel == "" {
		c.Channel = entities.ChannelWeb
	}
	if !c.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", entities.ErrInvalidInput, c.Channel)
	}
	if c.Status == "" {
		c.Status = entities.StatusOpen
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, c.Status)
	}
	var err error
	if c.Subject, err = optionalText("subject", c.Subject, MaxTitleLength); err != nil {
		return err
	}
	if c.ExternalRef, err = optionalText("external_ref", c.ExternalRef, 128); err != nil {
		return err
	}
	if err := uc.conversations.Create(ctx, c); err != nil {
		return err
	}
	recordEvent(ctx, uc.events, uc.logger, entities.EventConversationCreated, map[string]any{
		"conversation_id": c.ID,
		"customer_id":     c.CustomerID,
		"channel":         c.Channel,
		"subject":         c.Subject,
	})
	return nil
}

// Update changes status, assignee, agent or subject. Any status may follow any
// other; a change is recorded as an event.
func (uc *ConversationUsecase) Update(ctx context.Context, id int64, p entities.ConversationPatch) (*entities.Conversation, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, *p.Status)
	}
	if p.Subject != nil {
		subject, err := optionalText("subject", *p.Subject, MaxTitleLength)
		if err != nil {
			return nil, err
		}
		p.Subject = &subject
	}

	current, err := uc.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return current, nil
	}
	updated, err := uc.conversations.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if updated.Status != current.Status {
		uc.statusChanged(ctx, updated, current.Status)
	}
	return updated, nil
}

func (uc *ConversationUsecase) statusChanged(ctx context.Context, c *entities.Conversation, from entities.ConversationStatus) {
	recordEvent(ctx, uc.events, uc.logger, entities.EventConversationStatusChanged, map[string]any{
		"conversation_id": c.ID,
		"customer_id":     c.CustomerID,
		"from":            from,
		"to":              c.Status,
	})
}

func (uc *ConversationUsecase) Delete(ctx context.Context, id int64) error {
	return uc.conversations.Delete(ctx, id)
}

// AgentReply is the result of posting a human agent message.
type AgentReply struct {
	Message       entities.Message `json:"message"`
	Delivered     bool             `json:"delivered"`
	DeliveryError string           `json:"delivery_error,omitempty"`
}

// PostAgentMessage stores a reply from a dashboard user and delivers it over
// the conversation's channel when a messenger is registered. Delivery
// failures are reported but the message stays stored.
func (uc *ConversationUsecase) PostAgentMessage(ctx context.Context, conversationID, userID int64, content string) (*AgentReply, error) {
	content = uc.formatter.Clean(content)
	if !ValidateLength(content, 1, MaxMessageLength) {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", entities.ErrInvalidInput, MaxMessageLength)
	}

	conv, err := uc.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg := entities.Message{ConversationID: conv.ID, Sender: entities.SenderAgent, Content: content}
	if err := uc.messages.Create(ctx, &msg); err != nil {
		return nil, err
	}
	msg.HTML = uc.formatter.RenderHTML(msg.Content)

	if conv.AssigneeID == nil && userID > 0 {
		if _, err := uc.conversations.Update(ctx, conv.ID, entities.ConversationPatch{AssigneeID: &userID}); err != nil {
			uc.logger.Warn("failed to assign conversation", "conversation_id", conv.ID, "error", err)
		}
	}

	reply := &AgentReply{Message: msg}
	messenger, ok := uc.messengers[conv.Channel]
	if !ok || conv.ExternalRef == "" {
		return reply, nil
	}
	if err := messenger.SendMessage(ctx, conv.ExternalRef, content); err != nil {
		uc.logger.Warn("outbound delivery failed",
			"conversation_id", conv.ID,
			"channel", conv.Channel,
			"error", err,
		)
		reply.DeliveryError = err.Error()
		return reply, nil
	}
	reply.Delivered = true
	return reply, nil
}
