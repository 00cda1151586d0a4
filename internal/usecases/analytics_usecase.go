package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

const (
	DefaultOverviewDays = 7
	MaxOverviewDays     = 90
	overviewCacheTTL    = 60 * time.Second
)

type AnalyticsUsecase struct {
	store  AnalyticsStore
	cache  interfaces.Cache // optional
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyticsUsecase(store AnalyticsStore, cache interfaces.Cache, logger *slog.Logger) *AnalyticsUsecase {
	return &AnalyticsUsecase{store: store, cache: cache, logger: logger, now: time.Now}
}

// Overview aggregates dashboard numbers for the last days (1..90, 0 means 7).
func (uc *AnalyticsUsecase) Overview(ctx context.Context, days int) (*entities.Overview, error) {
	if days == 0 {
		days = DefaultOverviewDays
	}
	if days < 1 || days > MaxOverviewDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", entities.ErrInvalidInput, MaxOverviewDays)
	}

	key := fmt.Sprintf("analytics:overview:%d", days)
	if cached := uc.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	ov, err := uc.compute(ctx, days)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(ov); err == nil {
			if err := uc.cache.Set(ctx, key, data, overviewCacheTTL); err != nil {
				uc.logger.Warn("failed to cache analytics overview", "error", err)
			}
		}
	}
	return ov, nil
}

func (uc *AnalyticsUsecase) fromCache(ctx context.Context, key string) *entities.Overview {
	if uc.cache == nil {
		return nil
	}
	data, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("analytics cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var ov entities.Overview
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil
	}
	return &ov
}

func (uc *AnalyticsUsecase) compute(ctx context.Context, days int) (*entities.Overview, error) {
	now := uc.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	byStatus, byChannel, avg, err := uc.store.ConversationBreakdown(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("conversation breakdown: %w", err)
	}
	escalations, err := uc.store.CountEvents(ctx, entities.EventConversationEscalated, since)
	if err != nil {
		return nil, fmt.Errorf("count escalations: %w", err)
	}
	daily, err := uc.store.DailyMessages(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("daily messages: %w", err)
	}
	funnel, err := uc.store.FunnelSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("funnel summary: %w", err)
	}
	newCustomers, err := uc.store.NewCustomers(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("new customers: %w", err)
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	rate := 0.0
	if total > 0 {
		rate = float64(byStatus[entities.StatusResolved]+byStatus[entities.StatusClosed]) / float64(total)
	}

	return &entities.Overview{
		Days:               days,
		TotalConversations: total,
		ByStatus:           byStatus,
		ByChannel:          byChannel,
		AvgConfidence:      avg,
		Escalations:        escalations,
		ResolutionRate:     rate,
		DailyMessages:      daily,
		Funnel:             orderFunnel(funnel),
		NewCustomers:       newCustomers,
		GeneratedAt:        now,
	}, nil
}

// orderFunnel returns one entry per stage in board order, zero-filled.
func orderFunnel(summary []entities.StageSummary) []entities.StageSummary {
	byStage := make(map[entities.Stage]entities.StageSummary, len(summary))
	for _, s := range summary {
		byStage[s.Stage] = s
	}
	out := make([]entities.StageSummary, len(entities.Stages))
	for i, st := range entities.Stages {
		s := byStage[st]
		s.Stage = st
		out[i] = s
	}
	return out
}
