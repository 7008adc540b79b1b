package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/givestream/donation-platform/pkg/common"
	"github.com/givestream/donation-platform/pkg/logger"
)

const recentActivityLimit = 10

// Service composes the pattern aggregator, scorer and trust feedback
// engine behind injected stores and a clock. It holds no mutable state of
// its own; concurrent invocations for different nonprofits never interact.
//
// Scoring is read-then-compute-then-write: two donations to the same
// nonprofit arriving together may both score against the pre-write
// history. That staleness window (at most one round-trip plus the pattern
// cache TTL) is accepted as best-effort detection and must not be closed
// with locking.
type Service struct {
	transactions TransactionStore
	trust        TrustStore
	aggregator   *PatternAggregator
	scorer       *Scorer
	feedback     *TrustFeedbackEngine
	cache        *PatternCache
	clock        Clock
}

// NewService creates a new fraud service. cache may be nil to disable the
// donor pattern cache; clock may be nil to use the system clock.
func NewService(transactions TransactionStore, trust TrustStore, cache *PatternCache, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		transactions: transactions,
		trust:        trust,
		aggregator:   NewPatternAggregator(transactions),
		scorer:       NewScorer(),
		feedback:     NewTrustFeedbackEngine(trust, clock),
		cache:        cache,
		clock:        clock,
	}
}

// ScoreDonation scores an incoming donation against the nonprofit's
// history and trust factor, persists the resulting transaction and returns
// both. A nonprofit with no history is not an error: it yields the
// new-donor score and an under_review status.
func (s *Service) ScoreDonation(ctx context.Context, candidate DonationCandidate) (*Transaction, *ScoreResult, error) {
	if candidate.Amount <= 0 {
		return nil, nil, common.NewBadRequestError("donation amount must be positive", nil)
	}

	now := s.clock.Now()
	if candidate.Timestamp.IsZero() {
		candidate.Timestamp = now
	}

	pattern, err := s.loadPattern(ctx, candidate.NonprofitID, now)
	if err != nil {
		return nil, nil, err
	}

	trustFactor := NeutralTrustFactor
	record, err := s.trust.GetTrustRecord(ctx, candidate.NonprofitID)
	switch {
	case err == nil:
		trustFactor = record.TrustScore
	case !common.IsNotFound(err):
		return nil, nil, err
	}

	result := s.scorer.Score(candidate, pattern, trustFactor)

	tx := &Transaction{
		ID:          uuid.New(),
		DonorID:     candidate.DonorID,
		NonprofitID: candidate.NonprofitID,
		Amount:      candidate.Amount,
		FraudScore:  result.FraudScore,
		Status:      result.Status,
		RiskReasons: result.Reasons,
		CreatedAt:   candidate.Timestamp,
	}

	if err := s.transactions.CreateTransaction(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("persist scored transaction: %w", err)
	}

	donationsScoredTotal.WithLabelValues(string(result.Status)).Inc()
	logger.WithContext(ctx).Info("Donation scored",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("nonprofit_id", candidate.NonprofitID.String()),
		zap.Float64("fraud_score", result.FraudScore),
		zap.String("status", string(result.Status)),
	)

	return tx, &result, nil
}

// UpdateTrustMetrics recomputes a nonprofit's trust record from a
// caller-selected transaction window
func (s *Service) UpdateTrustMetrics(ctx context.Context, nonprofitID uuid.UUID, recent []*Transaction) (*TrustUpdate, error) {
	return s.feedback.UpdateTrustMetrics(ctx, nonprofitID, recent)
}

// RecomputeTrust pulls the nonprofit's most recent transactions and runs a
// trust update over them
func (s *Service) RecomputeTrust(ctx context.Context, nonprofitID uuid.UUID, windowSize int) (*TrustUpdate, error) {
	recent, err := s.transactions.ListRecentForNonprofit(ctx, nonprofitID, windowSize)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions for nonprofit %s: %w", nonprofitID, err)
	}
	return s.feedback.UpdateTrustMetrics(ctx, nonprofitID, recent)
}

// GetDonorAnalytics returns the donor profile, recent activity, a coarse
// risk bucket and human-readable insights for a nonprofit
func (s *Service) GetDonorAnalytics(ctx context.Context, nonprofitID uuid.UUID) (*DonorAnalytics, error) {
	now := s.clock.Now()

	pattern, err := s.loadPattern(ctx, nonprofitID, now)
	if err != nil {
		return nil, err
	}

	recent, err := s.transactions.ListRecentForNonprofit(ctx, nonprofitID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions for nonprofit %s: %w", nonprofitID, err)
	}
	if recent == nil {
		recent = []*Transaction{}
	}

	return &DonorAnalytics{
		DonorProfile:   pattern,
		RecentActivity: recent,
		RiskAssessment: assessRisk(recent),
		Insights:       buildInsights(pattern, recent),
	}, nil
}

// OverrideTransactionStatus applies a manual admin status change. Any
// status may move to any other status; the override is final for this call
// but not protected against later overrides.
func (s *Service) OverrideTransactionStatus(ctx context.Context, transactionID uuid.UUID, override StatusOverride) (*Transaction, error) {
	if !ValidStatus(override.Status) {
		return nil, common.NewBadRequestError(fmt.Sprintf("unknown transaction status %q", override.Status), nil)
	}

	tx, err := s.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ApplyOverride(tx, override, now)

	if err := s.transactions.UpdateTransactionStatus(ctx, transactionID, override.Status, override.ReviewerNotes, override.ReviewedBy, now); err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}

	logger.WithContext(ctx).Info("Transaction status overridden",
		zap.String("transaction_id", transactionID.String()),
		zap.String("status", string(override.Status)),
		zap.String("reviewed_by", override.ReviewedBy.String()),
	)

	return tx, nil
}

func (s *Service) loadPattern(ctx context.Context, nonprofitID uuid.UUID, now time.Time) (*DonorPattern, error) {
	if s.cache != nil {
		if pattern := s.cache.Get(ctx, nonprofitID); pattern != nil {
			return pattern, nil
		}
	}

	pattern, err := s.aggregator.ComputePattern(ctx, nonprofitID, now)
	if err != nil {
		return nil, err
	}

	if pattern != nil && s.cache != nil {
		s.cache.Set(ctx, nonprofitID, pattern)
	}

	return pattern, nil
}

// assessRisk buckets recent activity by average fraud score; any flagged
// transaction in the window forces the high bucket.
func assessRisk(recent []*Transaction) RiskAssessment {
	var sum float64
	for _, tx := range recent {
		if tx.Status == StatusFlagged {
			return RiskHigh
		}
		sum += tx.FraudScore
	}

	var avg float64
	if len(recent) > 0 {
		avg = sum / float64(len(recent))
	}

	switch {
	case avg < 0.3:
		return RiskLow
	case avg < 0.7:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func buildInsights(pattern *DonorPattern, recent []*Transaction) []string {
	if pattern == nil {
		return []string{"No donation history for this nonprofit yet"}
	}

	var insights []string

	if pattern.RecentBurstCount >= burstThreshold {
		insights = append(insights, fmt.Sprintf("High donation velocity: %d donations in the last 5 minutes", pattern.RecentBurstCount))
	}
	if pattern.TotalDonations < thinHistoryMin {
		insights = append(insights, fmt.Sprintf("Limited donation history: %d donations total", pattern.TotalDonations))
	}

	var flagged int
	for _, tx := range recent {
		if tx.Status == StatusFlagged || tx.Status == StatusBlocked {
			flagged++
		}
	}
	if flagged > 0 {
		insights = append(insights, fmt.Sprintf("%d of the last %d donations are flagged or blocked", flagged, len(recent)))
	}

	if pattern.TotalDonations >= trustWindowMin && pattern.ConsistencyScore > 0.9 {
		insights = append(insights, fmt.Sprintf("Strong completion rate: %.0f%% of donations cleared", pattern.ConsistencyScore*100))
	}

	if len(insights) == 0 {
		insights = append(insights, "Donation activity looks typical for this nonprofit")
	}

	return insights
}
