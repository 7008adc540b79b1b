package trustworker

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/givestream/donation-platform/internal/fraud"
)

// Database defines the database operations required by the trust worker.
// This interface wraps the pgxpool.Pool methods used by the worker,
// allowing for easier testing through mock implementations.
type Database interface {
	// Query executes a query that returns rows, typically a SELECT.
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// TrustUpdater recomputes a nonprofit's trust record over its recent
// transaction window. Implemented by the fraud service.
type TrustUpdater interface {
	RecomputeTrust(ctx context.Context, nonprofitID uuid.UUID, windowSize int) (*fraud.TrustUpdate, error)
}
