package repository

import (
	"context"
	"time"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// ConversationBreakdown counts conversations created since the given time.
func (r *AnalyticsRepository) ConversationBreakdown(ctx context.Context, since time.Time) (map[entities.ConversationStatus]int, map[entities.Channel]int, *float64, error) {
	byStatus := map[entities.ConversationStatus]int{}
	byChannel := map[entities.Channel]int{}

	rows, err := r.db.Query(ctx, `
		SELECT status, channel, COUNT(*)
		FROM conversations WHERE created_at >= $1
		GROUP BY status, channel
	`, since)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status entities.ConversationStatus
		var channel entities.Channel
		var n int
		if err := rows.Scan(&status, &channel, &n); err != nil {
			return nil, nil, nil, err
		}
		byStatus[status] += n
		byChannel[channel] += n
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	var avg *float64
	err = r.db.QueryRow(ctx, `
		SELECT AVG(ai_confidence) FROM conversations
		WHERE created_at >= $1 AND ai_confidence IS NOT NULL
	`, since).Scan(&avg)
	if err != nil {
		return nil, nil, nil, err
	}
	return byStatus, byChannel, avg, nil
}

// CountEvents counts recorded webhook events of a type since the given time.
func (r *AnalyticsRepository) CountEvents(ctx context.Context, eventType string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM webhook_events WHERE event_type = $1 AND created_at >= $2",
		eventType, since).Scan(&n)
	return n, err
}

// dailyMessagesSQL buckets messages by UTC day so the series does not depend
// on the session time zone.
const dailyMessagesSQL = `
	SELECT d::date,
	       COUNT(m.id) FILTER (WHERE m.sender = 'customer'),
	       COUNT(m.id) FILTER (WHERE m.sender = 'ai'),
	       COUNT(m.id) FILTER (WHERE m.sender = 'agent')
	FROM generate_series($1::date, (NOW() AT TIME ZONE 'UTC')::date, INTERVAL '1 day') AS d
	LEFT JOIN messages m ON (m.created_at AT TIME ZONE 'UTC')::date = d::date
	GROUP BY d
	ORDER BY d ASC
`

// DailyMessages returns one row per UTC day since the given date, zero-filled.
func (r *AnalyticsRepository) DailyMessages(ctx context.Context, since time.Time) ([]entities.DailyVolume, error) {
	rows, err := r.db.Query(ctx, dailyMessagesSQL, since.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volume := []entities.DailyVolume{}
	for rows.Next() {
		var v entities.DailyVolume
		if err := rows.Scan(&v.Date, &v.Customer, &v.AI, &v.Agent); err != nil {
			return nil, err
		}
		volume = append(volume, v)
	}
	return volume, rows.Err()
}

// FunnelSummary returns count and value per stage present in the table.
func (r *AnalyticsRepository) FunnelSummary(ctx context.Context) ([]entities.StageSummary, error) {
	rows, err := r.db.Query(ctx, "SELECT stage, COUNT(*), COALESCE(SUM(value_cents), 0) FROM customers GROUP BY stage")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := []entities.StageSummary{}
	for rows.Next() {
		var s entities.StageSummary
		if err := rows.Scan(&s.Stage, &s.Count, &s.ValueCents); err != nil {
			return nil, err
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

func (r *AnalyticsRepository) NewCustomers(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers WHERE created_at >= $1", since).Scan(&n)
	return n, err
}
