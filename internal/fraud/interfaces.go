package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionStore defines the transaction persistence operations required
// by the fraud engine. Implementations must treat single-record reads and
// writes as atomic; the engine never needs cross-record transactions.
type TransactionStore interface {
	// ListForNonprofit returns every transaction for a nonprofit, oldest first.
	ListForNonprofit(ctx context.Context, nonprofitID uuid.UUID) ([]*Transaction, error)

	// ListRecentForNonprofit returns the newest transactions for a nonprofit,
	// newest first, capped at limit.
	ListRecentForNonprofit(ctx context.Context, nonprofitID uuid.UUID, limit int) ([]*Transaction, error)

	// GetTransaction returns a transaction by ID.
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// CreateTransaction persists a newly scored transaction.
	CreateTransaction(ctx context.Context, tx *Transaction) error

	// UpdateTransactionStatus applies a manual status override.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status TransactionStatus, notes string, reviewedBy uuid.UUID, reviewedAt time.Time) error
}

// TrustStore defines the trust record persistence operations required by
// the scorer's trust lookup and the trust feedback engine.
type TrustStore interface {
	// GetTrustRecord returns a nonprofit's trust record, or a not-found
	// error if the nonprofit was never provisioned.
	GetTrustRecord(ctx context.Context, nonprofitID uuid.UUID) (*NonprofitTrustRecord, error)

	// SaveTrustRecord persists a trust record, last write wins.
	SaveTrustRecord(ctx context.Context, record *NonprofitTrustRecord) error
}

// Clock abstracts time.Now so the burst window and odd-hour rules are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC
func SystemClock() Clock { return systemClock{} }
