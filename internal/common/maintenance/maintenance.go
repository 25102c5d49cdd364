// Package maintenance prunes superseded index rows once their audit value
// has lapsed. Superseded rows are kept for point-in-time inspection after a
// rebuild; they carry no matching relevance and can be dropped after a
// retention period.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/internal/common/logger"
)

type Maintenance struct {
	db     *db.DB
	logger logger.Logger
}

func New(database *db.DB, logger logger.Logger) *Maintenance {
	return &Maintenance{
		db:     database,
		logger: logger,
	}
}

// PruneSupersededEntries deletes index rows superseded more than
// retentionDays ago. Active rows are never touched.
func (m *Maintenance) PruneSupersededEntries(ctx context.Context, retentionDays int) (int64, error) {
	m.logger.Info("Pruning superseded index entries", "retention_days", retentionDays)

	result, err := m.db.DB().ExecContext(ctx, `
		DELETE FROM commute.route_station_index
		WHERE is_active = false
		  AND superseded_at < now() - make_interval(days => $1)`,
		retentionDays)
	if err != nil {
		return 0, fmt.Errorf("pruning superseded entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting pruned row count: %w", err)
	}

	m.logger.Info("Pruned superseded index entries", "records_deleted", deleted)
	return deleted, nil
}

// Run executes pruning on a ticker until the context is cancelled. The first
// pass runs after a short delay so startup rebuilds settle first.
func (m *Maintenance) Run(ctx context.Context, interval time.Duration, retentionDays int) {
	initialDelay := time.NewTimer(5 * time.Minute)
	defer initialDelay.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Index maintenance stopping")
			return

		case <-initialDelay.C:
			m.prune(ctx, retentionDays)

		case <-ticker.C:
			m.prune(ctx, retentionDays)
		}
	}
}

func (m *Maintenance) prune(ctx context.Context, retentionDays int) {
	start := time.Now()
	if _, err := m.PruneSupersededEntries(ctx, retentionDays); err != nil {
		m.logger.Error("Index maintenance failed", "error", err, "duration", time.Since(start))
		return
	}
	m.logger.Debug("Index maintenance completed", "duration", time.Since(start))
}
