package entities

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingWebhookURL     = "webhook_url"
	SettingWebhookSecret  = "webhook_secret"
	SettingDefaultAgentID = "default_agent_id"
	SettingBusinessName   = "business_name"
)
