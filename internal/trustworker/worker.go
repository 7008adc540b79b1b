package trustworker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/givestream/donation-platform/pkg/logger"
)

// Worker periodically recomputes trust records for nonprofits with recent
// donation activity. Each run is independent; a recompute racing with
// concurrent scoring reads is resolved last-write-wins on the trust record.
type Worker struct {
	db         Database
	updater    TrustUpdater
	interval   time.Duration
	windowSize int

	stop chan struct{}
	done chan struct{}
}

// New creates a trust worker that runs every interval and feeds each
// recompute the nonprofit's last windowSize transactions
func New(db Database, updater TrustUpdater, interval time.Duration, windowSize int) *Worker {
	return &Worker{
		db:         db,
		updater:    updater,
		interval:   interval,
		windowSize: windowSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the worker loop in a goroutine
func (w *Worker) Start() {
	go w.run()
}

// Stop signals the worker to stop and waits for the current run to finish
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Trust worker started",
		zap.Duration("interval", w.interval),
		zap.Int("window_size", w.windowSize),
	)

	for {
		select {
		case <-w.stop:
			logger.Info("Trust worker stopped")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			if err := w.RunOnce(ctx); err != nil {
				logger.Error("Trust recompute pass failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce recomputes trust for every nonprofit with a transaction inside
// the lookback window. Failures for individual nonprofits are logged and
// skipped so one bad record cannot stall the pass.
func (w *Worker) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-w.interval)

	rows, err := w.db.Query(ctx, `
		SELECT DISTINCT nonprofit_id
		FROM transactions
		WHERE created_at >= $1
	`, cutoff)
	if err != nil {
		return fmt.Errorf("list active nonprofits: %w", err)
	}
	defer rows.Close()

	ids, err := collectIDs(rows)
	if err != nil {
		return fmt.Errorf("scan active nonprofits: %w", err)
	}

	var updated, failed int
	for _, id := range ids {
		if _, err := w.updater.RecomputeTrust(ctx, id, w.windowSize); err != nil {
			failed++
			logger.Warn("Trust recompute failed for nonprofit",
				zap.String("nonprofit_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	if updated > 0 || failed > 0 {
		logger.Info("Trust recompute pass completed",
			zap.Int("updated", updated),
			zap.Int("failed", failed),
		)
	}

	return nil
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
