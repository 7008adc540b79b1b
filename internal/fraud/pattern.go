package fraud

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BurstWindow is the lookback used for the donation burst count
const BurstWindow = 5 * time.Minute

// PatternAggregator reduces a nonprofit's transaction history into a
// statistical profile. It is a pure read: nothing is written back.
type PatternAggregator struct {
	store TransactionStore
}

// NewPatternAggregator creates a new pattern aggregator
func NewPatternAggregator(store TransactionStore) *PatternAggregator {
	return &PatternAggregator{store: store}
}

// ComputePattern builds the donor pattern for a nonprofit as of now.
// It returns nil (and no error) when the nonprofit has no transactions.
func (a *PatternAggregator) ComputePattern(ctx context.Context, nonprofitID uuid.UUID, now time.Time) (*DonorPattern, error) {
	transactions, err := a.store.ListForNonprofit(ctx, nonprofitID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for nonprofit %s: %w", nonprofitID, err)
	}

	return BuildPattern(nonprofitID, transactions, now), nil
}

// BuildPattern computes the statistical profile from a transaction history.
// Returns nil for an empty history rather than a zeroed struct.
func BuildPattern(nonprofitID uuid.UUID, transactions []*Transaction, now time.Time) *DonorPattern {
	if len(transactions) == 0 {
		return nil
	}

	pattern := &DonorPattern{
		NonprofitID:     nonprofitID,
		TotalDonations:  len(transactions),
		MinAmount:       transactions[0].Amount,
		MaxAmount:       transactions[0].Amount,
		FirstDonationAt: transactions[0].CreatedAt,
		LastDonationAt:  transactions[0].CreatedAt,
	}

	burstCutoff := now.Add(-BurstWindow)

	var sumAmount, sumScore float64
	for _, tx := range transactions {
		sumAmount += tx.Amount
		sumScore += tx.FraudScore

		if tx.Amount < pattern.MinAmount {
			pattern.MinAmount = tx.Amount
		}
		if tx.Amount > pattern.MaxAmount {
			pattern.MaxAmount = tx.Amount
		}
		if tx.CreatedAt.Before(pattern.FirstDonationAt) {
			pattern.FirstDonationAt = tx.CreatedAt
		}
		if tx.CreatedAt.After(pattern.LastDonationAt) {
			pattern.LastDonationAt = tx.CreatedAt
		}
		if tx.Status == StatusCompleted {
			pattern.CompletedTransactions++
		}
		if !tx.CreatedAt.Before(burstCutoff) {
			pattern.RecentBurstCount++
		}
	}

	n := float64(pattern.TotalDonations)
	pattern.AvgAmount = sumAmount / n
	pattern.AvgFraudScore = sumScore / n

	// Population standard deviation over the full history.
	var sumSquares float64
	for _, tx := range transactions {
		diff := tx.Amount - pattern.AvgAmount
		sumSquares += diff * diff
	}
	pattern.StdDevAmount = math.Sqrt(sumSquares / n)

	pattern.AvgFrequencyDays = now.Sub(pattern.FirstDonationAt).Hours() / 24 / n
	pattern.ConsistencyScore = float64(pattern.CompletedTransactions) / n

	return pattern
}
