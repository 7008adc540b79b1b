package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givestream/donation-platform/pkg/common"
)

// Repository handles fraud engine data operations
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var (
	_ TransactionStore = (*Repository)(nil)
	_ TrustStore       = (*Repository)(nil)
)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const transactionColumns = `
	id, donor_id, nonprofit_id, amount, fraud_score, status,
	risk_reasons, reviewer_notes, reviewed_by, reviewed_at, created_at
`

// ListForNonprofit retrieves all transactions for a nonprofit, oldest first
func (r *Repository) ListForNonprofit(ctx context.Context, nonprofitID uuid.UUID) ([]*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE nonprofit_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, nonprofitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListRecentForNonprofit retrieves the newest transactions for a nonprofit
func (r *Repository) ListRecentForNonprofit(ctx context.Context, nonprofitID uuid.UUID, limit int) ([]*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE nonprofit_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, nonprofitID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransaction retrieves a transaction by ID
func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	row := r.db.QueryRow(ctx, query, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("transaction not found", err)
		}
		return nil, err
	}

	return tx, nil
}

// CreateTransaction persists a newly scored transaction
func (r *Repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	reasonsJSON, err := json.Marshal(tx.RiskReasons)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, donor_id, nonprofit_id, amount, fraud_score, status,
			risk_reasons, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(ctx, query,
		tx.ID,
		tx.DonorID,
		tx.NonprofitID,
		tx.Amount,
		tx.FraudScore,
		tx.Status,
		reasonsJSON,
		tx.CreatedAt,
	)

	return err
}

// UpdateTransactionStatus applies a manual status override
func (r *Repository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status TransactionStatus, notes string, reviewedBy uuid.UUID, reviewedAt time.Time) error {
	query := `
		UPDATE transactions
		SET status = $2,
		    reviewer_notes = COALESCE(NULLIF($3, ''), reviewer_notes),
		    reviewed_by = $4,
		    reviewed_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status, notes, reviewedBy, reviewedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("transaction not found", nil)
	}

	return nil
}

// GetTrustRecord retrieves a nonprofit's trust record
func (r *Repository) GetTrustRecord(ctx context.Context, nonprofitID uuid.UUID) (*NonprofitTrustRecord, error) {
	query := `
		SELECT nonprofit_id, trust_score, trust_level, review_reason,
		       whitelisted_at, updated_at
		FROM nonprofit_trust_records
		WHERE nonprofit_id = $1
	`

	var record NonprofitTrustRecord
	var reviewReason sql.NullString
	var whitelistedAt sql.NullTime

	err := r.db.QueryRow(ctx, query, nonprofitID).Scan(
		&record.NonprofitID,
		&record.TrustScore,
		&record.TrustLevel,
		&reviewReason,
		&whitelistedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("nonprofit trust record not found", err)
		}
		return nil, err
	}

	if reviewReason.Valid {
		record.ReviewReason = &reviewReason.String
	}
	if whitelistedAt.Valid {
		record.WhitelistedAt = &whitelistedAt.Time
	}

	return &record, nil
}

// SaveTrustRecord persists a trust record, last write wins
func (r *Repository) SaveTrustRecord(ctx context.Context, record *NonprofitTrustRecord) error {
	query := `
		INSERT INTO nonprofit_trust_records (
			nonprofit_id, trust_score, trust_level, review_reason,
			whitelisted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (nonprofit_id) DO UPDATE SET
			trust_score = EXCLUDED.trust_score,
			trust_level = EXCLUDED.trust_level,
			review_reason = EXCLUDED.review_reason,
			whitelisted_at = EXCLUDED.whitelisted_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		record.NonprofitID,
		record.TrustScore,
		record.TrustLevel,
		record.ReviewReason,
		record.WhitelistedAt,
		record.UpdatedAt,
	)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var tx Transaction
	var reasonsJSON []byte
	var reviewerNotes sql.NullString
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&tx.ID,
		&tx.DonorID,
		&tx.NonprofitID,
		&tx.Amount,
		&tx.FraudScore,
		&tx.Status,
		&reasonsJSON,
		&reviewerNotes,
		&reviewedBy,
		&reviewedAt,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &tx.RiskReasons); err != nil {
			tx.RiskReasons = []string{}
		}
	}
	if reviewerNotes.Valid {
		tx.ReviewerNotes = &reviewerNotes.String
	}
	if reviewedBy.Valid {
		if id, err := uuid.Parse(reviewedBy.String); err == nil {
			tx.ReviewedBy = &id
		}
	}
	if reviewedAt.Valid {
		tx.ReviewedAt = &reviewedAt.Time
	}

	return &tx, nil
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	transactions := make([]*Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}
