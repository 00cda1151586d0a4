package repository

import (
	"context"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a message and bumps the conversation's last_message_at.
func (r *MessageRepository) Create(ctx context.Context, m *entities.Message) error {
	err := r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (conversation_id, sender, content, confidence)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		), touched AS (
			UPDATE conversations SET last_message_at = NOW(), updated_at = NOW() WHERE id = $1
		)
		SELECT id, created_at FROM inserted
	`, m.ConversationID, string(m.Sender), m.Content, m.Confidence).Scan(&m.ID, &m.CreatedAt)
	return mapError(err, "create message")
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, sender, content, confidence, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
