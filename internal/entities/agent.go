package entities

import (
	"fmt"
	"time"
)

// Agent is an AI agent configuration consumed by the chat handler.
type Agent struct {
	ID                  int64     `json:"id" yaml:"-"`
	Name                string    `json:"name" yaml:"name"`
	Model               string    `json:"model" yaml:"model"`
	SystemPrompt        string    `json:"system_prompt" yaml:"system_prompt"`
	Greeting            string    `json:"greeting" yaml:"greeting"`
	FallbackReply       string    `json:"fallback_reply" yaml:"fallback_reply"`
	Temperature         float64   `json:"temperature" yaml:"temperature"`
	ConfidenceThreshold float64   `json:"confidence_threshold" yaml:"confidence_threshold"`
	MaxTokens           int       `json:"max_tokens" yaml:"max_tokens"`
	KnowledgeBaseID     *int64    `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	IsActive            bool      `json:"is_active" yaml:"is_active"`
	CreatedAt           time.Time `json:"created_at" yaml:"-"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"-"`
}

const (
	MaxAgentNameLength = 256
	MaxAgentTokens     = 32000
)

// DefaultAgent is used when no agent is configured.
func DefaultAgent() Agent {
	return Agent{
		Name:                "Default assistant",
		Model:               "simulated",
		Greeting:            "Hi! Thanks for reaching out. How can I help you today?",
		FallbackReply:       "Thanks for your message. A member of our team will get back to you shortly.",
		Temperature:         0.7,
		ConfidenceThreshold: 0.5,
		MaxTokens:           1024,
		IsActive:            true,
	}
}

// Validate checks the configurable bounds.
func (a Agent) Validate() error {
	if a.Name == "" || len(a.Name) > MaxAgentNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, MaxAgentNameLength)
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidInput)
	}
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be between 0 and 1", ErrInvalidInput)
	}
	if a.MaxTokens < 1 || a.MaxTokens > MaxAgentTokens {
		return fmt.Errorf("%w: max_tokens must be between 1 and %d", ErrInvalidInput, MaxAgentTokens)
	}
	return nil
}
