package infrastructure

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InboundMessage is a text message received from a channel.
type InboundMessage struct {
	ExternalRef string
	DisplayName string
	Text        string
}

// InboundHandler turns an inbound message into a reply. An empty reply sends
// nothing.
type InboundHandler func(ctx context.Context, msg InboundMessage) (string, error)

// defaultHandleTimeout bounds one inbound message, reply included.
const defaultHandleTimeout = 30 * time.Second

// TelegramPoller long-polls a bot and hands every text message to a handler.
type TelegramPoller struct {
	client        *TelegramClient
	handler       InboundHandler
	logger        *slog.Logger
	handleTimeout time.Duration
	wg            sync.WaitGroup
}

func NewTelegramPoller(client *TelegramClient, handler InboundHandler, logger *slog.Logger) *TelegramPoller {
	return &TelegramPoller{client: client, handler: handler, logger: logger, handleTimeout: defaultHandleTimeout}
}

// Run blocks until ctx is cancelled, then waits for in-flight handlers.
// Handlers already running are not cancelled with ctx; each is bounded by
// the handle timeout instead.
func (p *TelegramPoller) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := p.client.Bot.GetUpdatesChan(u)

	p.logger.Info("telegram polling started", "bot", p.client.Bot.Self.UserName)
	defer func() {
		p.client.Bot.StopReceivingUpdates()
		p.wg.Wait()
		p.logger.Info("telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := inboundFromUpdate(update)
			if !ok {
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handle(ctx, msg)
			}()
		}
	}
}

func (p *TelegramPoller) handle(parent context.Context, msg InboundMessage) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.handleTimeout)
	defer cancel()

	reply, err := p.handler(ctx, msg)
	if err != nil {
		p.logger.Warn("telegram inbound failed", "chat_id", msg.ExternalRef, "error", err)
		return
	}
	if reply == "" {
		return
	}
	if err := p.client.SendMessage(ctx, msg.ExternalRef, reply); err != nil {
		p.logger.Warn("telegram reply failed", "chat_id", msg.ExternalRef, "error", err)
	}
}

func inboundFromUpdate(update tgbotapi.Update) (InboundMessage, bool) {
	m := update.Message
	if m == nil || strings.TrimSpace(m.Text) == "" {
		return InboundMessage{}, false
	}
	text := m.Text
	if m.IsCommand() && m.Command() == "start" {
		text = "hello"
	}
	name := ""
	if m.From != nil {
		name = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
		if name == "" {
			name = m.From.UserName
		}
	}
	if name == "" {
		name = "Telegram " + strconv.FormatInt(m.Chat.ID, 10)
	}
	return InboundMessage{
		ExternalRef: strconv.FormatInt(m.Chat.ID, 10),
		DisplayName: name,
		Text:        text,
	}, true
}
