package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"supportdesk/internal/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const whatsAppGraphURL = "https://graph.facebook.com/v18.0"

// WhatsAppCloudClient sends text messages through the WhatsApp Cloud API.
type WhatsAppCloudClient struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

func NewWhatsAppCloudClient(accessToken, phoneNumberID string) *WhatsAppCloudClient {
	return &WhatsAppCloudClient{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       whatsAppGraphURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the client at another Graph API host.
func (w *WhatsAppCloudClient) WithBaseURL(baseURL string) *WhatsAppCloudClient {
	w.baseURL = baseURL
	return w
}

func (w *WhatsAppCloudClient) SendMessage(ctx context.Context, to, content string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": content,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// TelegramClient sends messages through a bot. Recipients are chat ids.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot token: %w", err)
	}
	return &TelegramClient{Bot: bot}, nil
}

func (t *TelegramClient) SendMessage(ctx context.Context, to, content string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", to, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = t.Bot.Send(tgbotapi.NewMessage(chatID, content))
	return err
}

var (
	_ interfaces.Messenger = (*WhatsAppCloudClient)(nil)
	_ interfaces.Messenger = (*TelegramClient)(nil)
)
