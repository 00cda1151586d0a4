package usecases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"supportdesk/internal/entities"

	"gopkg.in/yaml.v3"
)

type AgentUsecase struct {
	agents   AgentStore
	settings SettingsStore
	logger   *slog.Logger
}

func NewAgentUsecase(agents AgentStore, settings SettingsStore, logger *slog.Logger) *AgentUsecase {
	return &AgentUsecase{agents: agents, settings: settings, logger: logger}
}

func (uc *AgentUsecase) List(ctx context.Context) ([]entities.Agent, error) {
	return uc.agents.List(ctx)
}

func (uc *AgentUsecase) Get(ctx context.Context, id int64) (*entities.Agent, error) {
	return uc.agents.Get(ctx, id)
}

func normalizeAgent(a *entities.Agent) error {
	a.Name = strings.TrimSpace(SanitizeString(a.Name))
	a.Model = strings.TrimSpace(SanitizeString(a.Model))
	if a.Model == "" {
		a.Model = "simulated"
	}
	a.SystemPrompt = SanitizeString(a.SystemPrompt)
	a.Greeting = strings.TrimSpace(SanitizeString(a.Greeting))
	a.FallbackReply = strings.TrimSpace(SanitizeString(a.FallbackReply))
	for field, v := range map[string]string{
		"system_prompt":  a.SystemPrompt,
		"greeting":       a.Greeting,
		"fallback_reply": a.FallbackReply,
	} {
		if !ValidateLength(v, 0, MaxSettingValLength) {
			return fmt.Errorf("%w: %s must be at most %d characters", entities.ErrInvalidInput, field, MaxSettingValLength)
		}
	}
	return a.Validate()
}

func (uc *AgentUsecase) Create(ctx context.Context, a *entities.Agent) error {
	if err := normalizeAgent(a); err != nil {
		return err
	}
	return uc.agents.Create(ctx, a)
}

// Update replaces every configurable field of an agent.
func (uc *AgentUsecase) Update(ctx context.Context, a *entities.Agent) error {
	if err := normalizeAgent(a); err != nil {
		return err
	}
	return uc.agents.Update(ctx, a)
}

// Delete removes an agent and clears default_agent_id when it pointed at it.
func (uc *AgentUsecase) Delete(ctx context.Context, id int64) error {
	if err := uc.agents.Delete(ctx, id); err != nil {
		return err
	}
	current, err := uc.settings.GetSetting(ctx, entities.SettingDefaultAgentID)
	if err != nil {
		return err
	}
	if current == strconv.FormatInt(id, 10) {
		return uc.settings.DeleteSetting(ctx, entities.SettingDefaultAgentID)
	}
	return nil
}

type agentPresetFile struct {
	Agents []yaml.Node `yaml:"agents"`
}

// ParseAgentPresets reads a YAML document with an "agents" list. Omitted
// fields take the default agent's values.
func ParseAgentPresets(r io.Reader) ([]entities.Agent, error) {
	var file agentPresetFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: agent presets: %v", entities.ErrInvalidInput, err)
	}
	agents := make([]entities.Agent, 0, len(file.Agents))
	for i, node := range file.Agents {
		a := entities.DefaultAgent()
		a.Name = ""
		if err := node.Decode(&a); err != nil {
			return nil, fmt.Errorf("%w: agent preset %d: %v", entities.ErrInvalidInput, i+1, err)
		}
		if err := normalizeAgent(&a); err != nil {
			return nil, fmt.Errorf("agent preset %d: %w", i+1, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Seed creates the presets whose names do not exist yet.
func (uc *AgentUsecase) Seed(ctx context.Context, r io.Reader) (int, error) {
	presets, err := ParseAgentPresets(r)
	if err != nil {
		return 0, err
	}
	existing, err := uc.agents.List(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, a := range existing {
		names[strings.ToLower(a.Name)] = true
	}

	created := 0
	for i := range presets {
		a := &presets[i]
		if names[strings.ToLower(a.Name)] {
			uc.logger.Debug("agent preset exists", "name", a.Name)
			continue
		}
		if err := uc.agents.Create(ctx, a); err != nil {
			return created, fmt.Errorf("seed agent %q: %w", a.Name, err)
		}
		names[strings.ToLower(a.Name)] = true
		created++
	}
	return created, nil
}
