package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"supportdesk/internal/entities"
)

type SettingsUsecase struct {
	settings SettingsStore
}

func NewSettingsUsecase(settings SettingsStore) *SettingsUsecase {
	return &SettingsUsecase{settings: settings}
}

func (uc *SettingsUsecase) List(ctx context.Context) ([]entities.Setting, error) {
	return uc.settings.ListSettings(ctx)
}

// Get returns a setting value; unset keys are ErrNotFound.
func (uc *SettingsUsecase) Get(ctx context.Context, key string) (string, error) {
	if !ValidSettingKey(key) {
		return "", fmt.Errorf("%w: invalid key %q", entities.ErrInvalidInput, key)
	}
	value, err := uc.settings.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("setting %q: %w", key, entities.ErrNotFound)
	}
	return value, nil
}

// Set upserts a setting after sanitizing the value.
func (uc *SettingsUsecase) Set(ctx context.Context, key, value string) error {
	if !ValidSettingKey(key) {
		return fmt.Errorf("%w: key must be 1-%d letters, digits or '_'", entities.ErrInvalidInput, MaxSettingKeyLength)
	}
	value = SanitizeString(value)
	if !ValidateLength(value, 0, MaxSettingValLength) {
		return fmt.Errorf("%w: value must be at most %d characters", entities.ErrInvalidInput, MaxSettingValLength)
	}

	switch key {
	case entities.SettingWebhookURL:
		value = strings.TrimSpace(value)
		if value != "" && !ValidHTTPURL(value) {
			return fmt.Errorf("%w: webhook_url must be an http(s) URL", entities.ErrInvalidInput)
		}
	case entities.SettingDefaultAgentID:
		value = strings.TrimSpace(value)
		if value != "" {
			if id, err := strconv.ParseInt(value, 10, 64); err != nil || id <= 0 {
				return fmt.Errorf("%w: default_agent_id must be a positive integer", entities.ErrInvalidInput)
			}
		}
	}
	return uc.settings.SetSetting(ctx, key, value)
}

func (uc *SettingsUsecase) Delete(ctx context.Context, key string) error {
	if !ValidSettingKey(key) {
		return fmt.Errorf("%w: invalid key %q", entities.ErrInvalidInput, key)
	}
	return uc.settings.DeleteSetting(ctx, key)
}
