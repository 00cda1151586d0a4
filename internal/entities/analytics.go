package entities

import "time"

type DailyVolume struct {
	Date     time.Time `json:"date"`
	Customer int       `json:"customer"`
	AI       int       `json:"ai"`
	Agent    int       `json:"agent"`
}

// Overview is the analytics dashboard payload.
type Overview struct {
	Days               int                        `json:"days"`
	TotalConversations int                        `json:"total_conversations"`
	ByStatus           map[ConversationStatus]int `json:"by_status"`
	ByChannel          map[Channel]int            `json:"by_channel"`
	AvgConfidence      *float64                   `json:"avg_confidence"`
	Escalations        int                        `json:"escalations"`
	ResolutionRate     float64                    `json:"resolution_rate"`
	DailyMessages      []DailyVolume              `json:"daily_messages"`
	Funnel             []StageSummary             `json:"funnel"`
	NewCustomers       int                        `json:"new_customers"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

type StageSummary struct {
	Stage      Stage `json:"stage"`
	Count      int   `json:"count"`
	ValueCents int64 `json:"value_cents"`
}
