package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conversationSelect = `
	SELECT c.id, c.customer_id, COALESCE(cu.name, ''), c.agent_id, c.assignee_id, c.channel, c.status,
	       c.subject, c.ai_confidence, c.external_ref, c.last_message_at, c.created_at, c.updated_at
	FROM conversations c
	LEFT JOIN customers cu ON cu.id = c.customer_id`

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func scanConversation(row pgx.Row, c *entities.Conversation) error {
	return row.Scan(&c.ID, &c.CustomerID, &c.CustomerName, &c.AgentID, &c.AssigneeID, &c.Channel, &c.Status,
		&c.Subject, &c.AIConfidence, &c.ExternalRef, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ConversationRepository) List(ctx context.Context, f entities.ConversationFilter) ([]entities.Conversation, int, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if f.Channel != "" {
		args = append(args, string(f.Channel))
		where = append(where, fmt.Sprintf("c.channel = $%d", len(args)))
	}
	if f.AssigneeID != nil {
		args = append(args, *f.AssigneeID)
		where = append(where, fmt.Sprintf("c.assignee_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(c.subject ILIKE $%d OR cu.name ILIKE $%d)", n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM conversations c LEFT JOIN customers cu ON cu.id = c.customer_id" + clause
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf("%s%s ORDER BY c.last_message_at DESC, c.id DESC LIMIT $%d OFFSET $%d",
		conversationSelect, clause, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	conversations := []entities.Conversation{}
	for rows.Next() {
		var c entities.Conversation
		if err := scanConversation(rows, &c); err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, c)
	}
	return conversations, total, rows.Err()
}

func (r *ConversationRepository) Get(ctx context.Context, id int64) (*entities.Conversation, error) {
	var c entities.Conversation
	if err := scanConversation(r.db.QueryRow(ctx, conversationSelect+" WHERE c.id = $1", id), &c); err != nil {
		return nil, mapError(err, "get conversation")
	}
	return &c, nil
}

// FindActiveByRef returns the newest non-closed conversation for a channel
// reference, or nil when there is none.
func (r *ConversationRepository) FindActiveByRef(ctx context.Context, channel entities.Channel, ref string) (*entities.Conversation, error) {
	var c entities.Conversation
	err := scanConversation(r.db.QueryRow(ctx, conversationSelect+`
		WHERE c.channel = $1 AND c.external_ref = $2 AND c.status <> 'closed'
		ORDER BY c.last_message_at DESC LIMIT 1`, string(channel), ref), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) Create(ctx context.Context, c *entities.Conversation) error {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (customer_id, agent_id, assignee_id, channel, status, subject, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.CustomerID, c.AgentID, c.AssigneeID, string(c.Channel), string(c.Status), c.Subject, c.ExternalRef).Scan(&id)
	if err != nil {
		return mapError(err, "create conversation")
	}
	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (r *ConversationRepository) Update(ctx context.Context, id int64, p entities.ConversationPatch) (*entities.Conversation, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.ClearAssignee {
		sets = append(sets, "assignee_id = NULL")
	} else if p.AssigneeID != nil {
		add("assignee_id", *p.AssigneeID)
	}
	if p.AgentID != nil {
		add("agent_id", *p.AgentID)
	}
	if p.Subject != nil {
		add("subject", *p.Subject)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE conversations SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(sets, ", "), len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "update conversation")
	}
	if err := requireRow(tag, "update conversation"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// SetAIResult records the latest simulated confidence and, when status is
// non-empty, the resulting status.
func (r *ConversationRepository) SetAIResult(ctx context.Context, id int64, confidence float64, status entities.ConversationStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET ai_confidence = $1,
		    status = COALESCE(NULLIF($2, ''), status),
		    updated_at = NOW()
		WHERE id = $3
	`, confidence, string(status), id)
	if err != nil {
		return err
	}
	return requireRow(tag, "update conversation")
}

func (r *ConversationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM conversations WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(tag, "delete conversation")
}
