package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grocery-planner/internal/metrics"
	"grocery-planner/internal/storage"
)

// ExportSelection renders a user's live selection, or one history record when historyKey is set.
func (a *App) ExportSelection(ctx context.Context, email, historyKey string) (string, error) {
	if historyKey != "" {
		return a.service.ExportHistory(ctx, email, historyKey)
	}
	return a.service.ExportCurrent(ctx, email)
}

// MigrateStore copies the JSON data file into the SQLite documents table and
// returns the number of users copied. A missing or unreadable data file is an
// error and leaves both stores as they were.
func (a *App) MigrateStore(ctx context.Context) (int, error) {
	fileBackend, err := storage.NewFileBackend(a.cfg.DataFile)
	if err != nil {
		return 0, err
	}
	doc, err := storage.ReadDocument(ctx, fileBackend)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", a.cfg.DataFile, err)
	}

	target := storage.NewUserStore(storage.NewSQLiteBackend(a.db.SQL), a.log)
	if err := target.Replace(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to write sqlite store: %w", err)
	}
	a.log.Info("Migrated user store to sqlite", zap.Int("users", len(doc)))
	return len(doc), nil
}

// CleanupMetrics removes action metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	return a.metricsStore.Cleanup(ctx, days)
}

// Usage returns per-day action totals for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}
