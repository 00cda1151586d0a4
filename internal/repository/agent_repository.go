package repository

import (
	"context"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const agentColumns = `id, name, model, system_prompt, greeting, fallback_reply, temperature,
	confidence_threshold, max_tokens, knowledge_base_id, is_active, created_at, updated_at`

type AgentRepository struct {
	db *pgxpool.Pool
}

func NewAgentRepository(db *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{db: db}
}

func scanAgent(row pgx.Row, a *entities.Agent) error {
	return row.Scan(&a.ID, &a.Name, &a.Model, &a.SystemPrompt, &a.Greeting, &a.FallbackReply, &a.Temperature,
		&a.ConfidenceThreshold, &a.MaxTokens, &a.KnowledgeBaseID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AgentRepository) List(ctx context.Context) ([]entities.Agent, error) {
	rows, err := r.db.Query(ctx, "SELECT "+agentColumns+" FROM ai_agents ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []entities.Agent{}
	for rows.Next() {
		var a entities.Agent
		if err := scanAgent(rows, &a); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (r *AgentRepository) Get(ctx context.Context, id int64) (*entities.Agent, error) {
	var a entities.Agent
	if err := scanAgent(r.db.QueryRow(ctx, "SELECT "+agentColumns+" FROM ai_agents WHERE id = $1", id), &a); err != nil {
		return nil, mapError(err, "get agent")
	}
	return &a, nil
}

func (r *AgentRepository) Create(ctx context.Context, a *entities.Agent) error {
	err := scanAgent(r.db.QueryRow(ctx, `
		INSERT INTO ai_agents (name, model, system_prompt, greeting, fallback_reply, temperature,
			confidence_threshold, max_tokens, knowledge_base_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+agentColumns,
		a.Name, a.Model, a.SystemPrompt, a.Greeting, a.FallbackReply, a.Temperature,
		a.ConfidenceThreshold, a.MaxTokens, a.KnowledgeBaseID, a.IsActive), a)
	return mapError(err, "create agent")
}

func (r *AgentRepository) Update(ctx context.Context, a *entities.Agent) error {
	err := scanAgent(r.db.QueryRow(ctx, `
		UPDATE ai_agents SET name = $1, model = $2, system_prompt = $3, greeting = $4, fallback_reply = $5,
			temperature = $6, confidence_threshold = $7, max_tokens = $8, knowledge_base_id = $9,
			is_active = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING `+agentColumns,
		a.Name, a.Model, a.SystemPrompt, a.Greeting, a.FallbackReply, a.Temperature,
		a.ConfidenceThreshold, a.MaxTokens, a.KnowledgeBaseID, a.IsActive, a.ID), a)
	return mapError(err, "update agent")
}

func (r *AgentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM ai_agents WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(tag, "delete agent")
}
