package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"supportdesk/internal/entities"

	"github.com/google/uuid"
)

const (
	HeaderWebhookSecret = "X-Webhook-Secret"
	HeaderWebhookEvent  = "X-Webhook-Event"
	HeaderWebhookID     = "X-Webhook-Id"

	maxEventTypeLength = 64
	maxErrorBodyBytes  = 512
)

// WebhookRelay records events and forwards them to the configured endpoint.
// Each Relay call makes exactly one POST; there is no retry.
type WebhookRelay struct {
	events   WebhookStore
	settings SettingsStore
	client   *http.Client
	logger   *slog.Logger
}

func NewWebhookRelay(events WebhookStore, settings SettingsStore, timeout time.Duration, logger *slog.Logger) *WebhookRelay {
	return &WebhookRelay{
		events:   events,
		settings: settings,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithHTTPClient replaces the outbound client.
func (r *WebhookRelay) WithHTTPClient(client *http.Client) *WebhookRelay {
	r.client = client
	return r
}

// Record stores a pending event. payload is marshaled to JSON.
func (r *WebhookRelay) Record(ctx context.Context, eventType string, payload any) (*entities.WebhookEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", entities.ErrInvalidInput, err)
	}
	return r.CreateEvent(ctx, eventType, raw)
}

// CreateEvent stores a pending event with a raw JSON payload.
func (r *WebhookRelay) CreateEvent(ctx context.Context, eventType string, payload json.RawMessage) (*entities.WebhookEvent, error) {
	eventType = strings.TrimSpace(eventType)
	if !ValidateLength(eventType, 1, maxEventTypeLength) {
		return nil, fmt.Errorf("%w: event_type must be 1-%d characters", entities.ErrInvalidInput, maxEventTypeLength)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", entities.ErrInvalidInput)
	}

	event := &entities.WebhookEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Status:    entities.WebhookPending,
	}
	if err := r.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *WebhookRelay) Get(ctx context.Context, id string) (*entities.WebhookEvent, error) {
	return r.events.Get(ctx, id)
}

func (r *WebhookRelay) List(ctx context.Context, status entities.WebhookStatus, limit int) ([]entities.WebhookEvent, error) {
	switch status {
	case "", entities.WebhookPending, entities.WebhookDelivered, entities.WebhookFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, status)
	}
	limit, _ = clampPage(limit, 0)
	return r.events.List(ctx, status, limit)
}

// Relay posts the event payload once and records the outcome.
func (r *WebhookRelay) Relay(ctx context.Context, id string) (*entities.WebhookEvent, error) {
	event, err := r.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := r.settings.GetSetting(ctx, entities.SettingWebhookURL)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, entities.ErrWebhookNotConfigured
	}
	secret, err := r.settings.GetSetting(ctx, entities.SettingWebhookSecret)
	if err != nil {
		return nil, err
	}

	result := r.deliver(ctx, target, secret, event)
	updated, err := r.events.RecordAttempt(ctx, event.ID, result)
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	r.logger.Info("webhook relayed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"delivered", result.Delivered,
		"response_status", result.ResponseStatus,
		"attempts", updated.Attempts,
	)
	return updated, nil
}

func (r *WebhookRelay) deliver(ctx context.Context, target, secret string, event *entities.WebhookEvent) entities.DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(event.Payload))
	if err != nil {
		return entities.DeliveryResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookSecret, secret)
	req.Header.Set(HeaderWebhookEvent, event.EventType)
	req.Header.Set(HeaderWebhookID, event.ID)

	resp, err := r.client.Do(req)
	if err != nil {
		return entities.DeliveryResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return entities.DeliveryResult{Delivered: true, ResponseStatus: resp.StatusCode}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if b := strings.TrimSpace(SanitizeString(string(body))); b != "" {
		msg += ": " + b
	}
	return entities.DeliveryResult{ResponseStatus: resp.StatusCode, Error: msg}
}

// recordEvent stores an event and logs instead of failing the caller.
func recordEvent(ctx context.Context, rec EventRecorder, logger *slog.Logger, eventType string, payload any) {
	if rec == nil {
		return
	}
	if _, err := rec.Record(ctx, eventType, payload); err != nil {
		logger.Warn("failed to record webhook event", "event_type", eventType, "error", err)
	}
}
