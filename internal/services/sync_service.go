package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/config"
	"github.com/santyhornia-creator/hibot-etl-script/internal/models"
	"github.com/santyhornia-creator/hibot-etl-script/internal/normalize"
	"github.com/santyhornia-creator/hibot-etl-script/internal/schedule"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Extractor fetches raw conversation documents from the remote API.
type Extractor interface {
	Login(ctx context.Context) (string, error)
	FetchRange(ctx context.Context, token string, start, end time.Time) []normalize.RawConversation
}

// ConversationStore persists normalized conversations.
type ConversationStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertBatch(ctx context.Context, rows []models.Conversation) error
	ReplaceMonth(ctx context.Context, monthStart time.Time, rows []models.Conversation) error
}

// RunSummary describes the outcome of one sync run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Skipped   bool   `json:"skipped"`
	Fetched   int    `json:"fetched"`
	Persisted int    `json:"persisted"`
}

// SyncService drives one full pipeline pass: business-hours gate, range
// planning, extraction, normalization and persistence.
type SyncService struct {
	extractor Extractor
	store     ConversationStore
	loc       *time.Location
	strategy  string
	now       func() time.Time
}

// NewSyncService wires the pipeline together. strategy must be one of the
// config strategy constants.
func NewSyncService(extractor Extractor, store ConversationStore, loc *time.Location, strategy string) (*SyncService, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if loc == nil {
		return nil, errors.New("timezone location is required")
	}
	if strategy != config.StrategyUpsert && strategy != config.StrategyReplaceMonth {
		return nil, fmt.Errorf("unknown sync strategy %q", strategy)
	}

	return &SyncService{
		extractor: extractor,
		store:     store,
		loc:       loc,
		strategy:  strategy,
		now:       time.Now,
	}, nil
}

// RunOnce executes a single sync run. Outside business hours the run is
// skipped without error. Login, schema and persistence failures abort this
// run only; the next scheduled run starts from scratch.
func (s *SyncService) RunOnce(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	now := s.now()

	if !schedule.IsBusinessHours(now, s.loc) {
		summary.Skipped = true
		logger.Info("Outside business hours, skipping sync run",
			zap.String("run_id", summary.RunID),
		)
		return summary, nil
	}

	logger.Info("Starting sync run",
		zap.String("run_id", summary.RunID),
		zap.String("strategy", s.strategy),
	)

	if err := s.store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure schema", zap.String("run_id", summary.RunID), zap.Error(err))
		return summary, err
	}

	token, err := s.extractor.Login(ctx)
	if err != nil {
		logger.Error("HiBot login failed, aborting run", zap.String("run_id", summary.RunID), zap.Error(err))
		return summary, err
	}

	start, end := schedule.PlanRange(now, s.loc)
	logger.Info("Planned extraction range",
		zap.String("run_id", summary.RunID),
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
	)

	raw := s.extractor.FetchRange(ctx, token, start, end)
	summary.Fetched = len(raw)

	rows := normalize.NormalizeAll(raw, s.loc)
	if len(rows) == 0 {
		logger.Info("No conversations in range, nothing to persist",
			zap.String("run_id", summary.RunID),
		)
		return summary, nil
	}

	if err := s.persist(ctx, start, rows); err != nil {
		logger.Error("Failed to persist batch, rolled back",
			zap.String("run_id", summary.RunID),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		return summary, err
	}
	summary.Persisted = len(rows)

	logger.Info("Sync run completed",
		zap.String("run_id", summary.RunID),
		zap.Int("fetched", summary.Fetched),
		zap.Int("persisted", summary.Persisted),
	)
	return summary, nil
}

func (s *SyncService) persist(ctx context.Context, monthStart time.Time, rows []models.Conversation) error {
	if s.strategy == config.StrategyReplaceMonth {
		return s.store.ReplaceMonth(ctx, monthStart, rows)
	}
	return s.store.UpsertBatch(ctx, rows)
}
