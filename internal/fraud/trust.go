package fraud

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/givestream/donation-platform/pkg/logger"
)

// Trust recompute tuning. A window smaller than trustWindowMin transactions
// never mutates the stored score; the metrics are still returned for
// observability.
const (
	trustWindowMin = 10

	trustFloor   = 0.1
	trustCeiling = 1.0

	consistencyWeight  = 0.1
	fraudFactorWeight  = 0.05
	fraudPenaltyWeight = 0.3

	downgradeStep      = 0.2
	downgradeAvgScore  = 0.6
	downgradeFlagCount = 3

	whitelistMinScore       = 0.9
	whitelistMinTx          = 20
	whitelistMinConsistency = 0.95
)

// TrustFeedbackEngine recomputes a nonprofit's trust record from recent
// transaction outcomes, closing the loop back into fraud scoring.
type TrustFeedbackEngine struct {
	trust TrustStore
	clock Clock
}

// NewTrustFeedbackEngine creates a new trust feedback engine
func NewTrustFeedbackEngine(trust TrustStore, clock Clock) *TrustFeedbackEngine {
	if clock == nil {
		clock = SystemClock()
	}
	return &TrustFeedbackEngine{trust: trust, clock: clock}
}

// ComputeTrustMetrics summarizes a caller-selected transaction window
func ComputeTrustMetrics(recent []*Transaction) TrustMetrics {
	m := TrustMetrics{TotalTransactions: len(recent)}
	if len(recent) == 0 {
		return m
	}

	var sumScore float64
	for _, tx := range recent {
		sumScore += tx.FraudScore
		switch tx.Status {
		case StatusCompleted:
			m.CompletedTransactions++
		case StatusFlagged, StatusBlocked:
			m.FlaggedTransactions++
		}
	}

	total := float64(m.TotalTransactions)
	m.AvgFraudScore = sumScore / total
	m.ConsistencyRatio = float64(m.CompletedTransactions) / total
	m.FraudPenalty = float64(m.FlaggedTransactions) / total * fraudPenaltyWeight

	return m
}

// nextTrust is the pure trust transition f(oldScore, metrics) -> new state.
// Repeated application over an unchanged window keeps nudging the score
// toward the ceiling; that matches the platform's long-standing behavior
// and is pinned by tests, so any change here is a deliberate one.
func nextTrust(currentScore float64, currentLevel TrustLevel, m TrustMetrics) (score float64, level TrustLevel, reviewReason string, whitelisted bool) {
	fraudFactor := 1 - m.AvgFraudScore - m.FraudPenalty

	score = currentScore + m.ConsistencyRatio*consistencyWeight + fraudFactor*fraudFactorWeight
	if score > trustCeiling {
		score = trustCeiling
	}
	level = currentLevel

	if m.AvgFraudScore > downgradeAvgScore || m.FlaggedTransactions > downgradeFlagCount {
		score -= downgradeStep
		if score < trustFloor {
			score = trustFloor
		}
		level = TrustLevelUnderReview
		reviewReason = fmt.Sprintf(
			"Automatic downgrade: average fraud score %.2f with %d flagged transactions in the recent window",
			m.AvgFraudScore, m.FlaggedTransactions,
		)
		return score, level, reviewReason, false
	}

	if score > whitelistMinScore &&
		m.TotalTransactions > whitelistMinTx &&
		m.ConsistencyRatio > whitelistMinConsistency &&
		m.FlaggedTransactions == 0 {
		level = TrustLevelWhitelisted
		whitelisted = true
	}

	return score, level, reviewReason, whitelisted
}

// UpdateTrustMetrics recomputes and persists a nonprofit's trust record
// from the given window. It aborts without any write when the nonprofit
// has no trust record, and leaves the score untouched for windows smaller
// than the minimum.
func (e *TrustFeedbackEngine) UpdateTrustMetrics(ctx context.Context, nonprofitID uuid.UUID, recent []*Transaction) (*TrustUpdate, error) {
	record, err := e.trust.GetTrustRecord(ctx, nonprofitID)
	if err != nil {
		return nil, err
	}

	metrics := ComputeTrustMetrics(recent)

	if metrics.TotalTransactions < trustWindowMin {
		return &TrustUpdate{
			TrustScore: record.TrustScore,
			TrustLevel: record.TrustLevel,
			Metrics:    metrics,
		}, nil
	}

	score, level, reviewReason, whitelisted := nextTrust(record.TrustScore, record.TrustLevel, metrics)

	now := e.clock.Now()
	record.TrustScore = score
	record.TrustLevel = level
	record.UpdatedAt = now
	if reviewReason != "" {
		record.ReviewReason = &reviewReason
	}
	if whitelisted {
		record.ReviewReason = nil
		whitelistedAt := now
		record.WhitelistedAt = &whitelistedAt
	}

	if err := e.trust.SaveTrustRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("save trust record for nonprofit %s: %w", nonprofitID, err)
	}

	switch {
	case level == TrustLevelUnderReview && reviewReason != "":
		trustDowngradesTotal.Inc()
		logger.WithContext(ctx).Warn("Nonprofit trust downgraded",
			zap.String("nonprofit_id", nonprofitID.String()),
			zap.Float64("trust_score", score),
			zap.String("reason", reviewReason),
		)
	case whitelisted:
		trustWhitelistsTotal.Inc()
		logger.WithContext(ctx).Info("Nonprofit whitelisted",
			zap.String("nonprofit_id", nonprofitID.String()),
			zap.Float64("trust_score", score),
		)
	}

	return &TrustUpdate{
		TrustScore: score,
		TrustLevel: level,
		Metrics:    metrics,
	}, nil
}
