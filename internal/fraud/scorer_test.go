package fraud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateAt(amount float64, hour int) DonationCandidate {
	return DonationCandidate{
		DonorID:     uuid.New(),
		NonprofitID: uuid.New(),
		Amount:      amount,
		Timestamp:   time.Date(2025, 6, 10, hour, 30, 0, 0, time.UTC),
	}
}

func basePattern() *DonorPattern {
	return &DonorPattern{
		NonprofitID:           uuid.New(),
		TotalDonations:        20,
		AvgAmount:             10,
		StdDevAmount:          0,
		MinAmount:             5,
		MaxAmount:             20,
		CompletedTransactions: 19,
		ConsistencyScore:      0.95,
	}
}

func TestScoreNewDonorForcesUnderReview(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Score(candidateAt(100, 12), nil, 0.2)

	assert.Equal(t, 0.5, result.FraudScore)
	assert.Equal(t, []string{NewDonorReason}, result.Reasons)
	assert.Equal(t, StatusUnderReview, result.Status)
}

func TestScoreDeviationBoundaryIsExclusive(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.MinAmount = 1
	pattern.StdDevAmount = 5

	// amount 40 against avg 10 is a deviation ratio of exactly 3.0,
	// which must not trip the outlier rule.
	exact := scorer.Score(candidateAt(40, 12), pattern, 1.0)
	// |40-10| = 30 > 2*5, so only the stddev rule fires.
	assert.InDelta(t, 0.15, exact.FraudScore, 1e-9)
	assert.Equal(t, StatusCompleted, exact.Status)

	above := scorer.Score(candidateAt(40.2, 12), pattern, 1.0)
	// Deviation 3.02 fires the outlier rule on top of the stddev rule.
	assert.InDelta(t, 0.55, above.FraudScore, 1e-9)
	assert.Equal(t, StatusFlagged, above.Status)
}

func TestScoreOutlierAndStdDevRulesBothFire(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.StdDevAmount = 2

	result := scorer.Score(candidateAt(100, 12), pattern, 1.0)

	// One anomalous amount is double-counted by design: the outlier rule
	// (0.4) and the stddev rule (0.15) stack.
	assert.InDelta(t, 0.55, result.FraudScore, 1e-9)
	assert.Len(t, result.Reasons, 3) // outlier, stddev, trust adjustment
}

func TestScoreTinyAmountTripsOutlierRule(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.MinAmount = 10

	// 0.5 < 0.1 * minAmount even though the deviation ratio is below 3.
	result := scorer.Score(candidateAt(0.5, 12), pattern, 1.0)

	assert.InDelta(t, outlierWeight, result.FraudScore, 1e-9)
}

func TestScoreBurstContributionDoesNotScale(t *testing.T) {
	scorer := NewScorer()

	for _, burst := range []int{3, 10} {
		pattern := basePattern()
		pattern.RecentBurstCount = burst

		result := scorer.Score(candidateAt(10, 12), pattern, 1.0)
		assert.InDelta(t, burstWeight, result.FraudScore, 1e-9, "burst=%d", burst)
	}

	pattern := basePattern()
	pattern.RecentBurstCount = 2
	result := scorer.Score(candidateAt(10, 12), pattern, 1.0)
	assert.InDelta(t, 0, result.FraudScore, 1e-9)
}

func TestScoreOddHourWindowInclusive(t *testing.T) {
	scorer := NewScorer()

	for hour := 0; hour < 24; hour++ {
		result := scorer.Score(candidateAt(10, hour), basePattern(), 1.0)
		if hour >= 2 && hour <= 5 {
			assert.InDelta(t, oddHourWeight, result.FraudScore, 1e-9, "hour=%d", hour)
		} else {
			assert.InDelta(t, 0, result.FraudScore, 1e-9, "hour=%d", hour)
		}
	}
}

func TestScoreThinHistory(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.TotalDonations = 4

	result := scorer.Score(candidateAt(10, 12), pattern, 1.0)

	assert.InDelta(t, thinHistoryWeight, result.FraudScore, 1e-9)
}

func TestScoreTrustAdjustmentAlwaysRecorded(t *testing.T) {
	scorer := NewScorer()

	full := scorer.Score(candidateAt(10, 12), basePattern(), 1.0)
	require.Len(t, full.Reasons, 1)
	assert.Contains(t, full.Reasons[0], "Trust adjustment")
	assert.InDelta(t, 0, full.FraudScore, 1e-9)

	low := scorer.Score(candidateAt(10, 12), basePattern(), 0.5)
	assert.InDelta(t, 0.05, low.FraudScore, 1e-9)
}

func TestScoreClampedToOne(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.TotalDonations = 3
	pattern.RecentBurstCount = 5
	pattern.StdDevAmount = 1
	pattern.MinAmount = 5

	// Every rule fires: 0.4 + 0.3 + 0.2 + 0.25 + 0.15 + 0.1 = 1.4.
	result := scorer.Score(candidateAt(100, 3), pattern, 0)

	assert.Equal(t, 1.0, result.FraudScore)
	assert.Equal(t, StatusBlocked, result.Status)
}

func TestScoreLowAmountScenarioBoundary(t *testing.T) {
	scorer := NewScorer()
	pattern := basePattern()
	pattern.StdDevAmount = 2

	// amount=2 vs avg=10: deviation 0.8 and 2 >= 0.1*5, so no outlier.
	// Odd hour (+0.25) and stddev (+0.15) fire.

	// With a fully trusted nonprofit the total is exactly 0.40, which is
	// not strictly above the flag threshold.
	trusted := scorer.Score(candidateAt(2, 3), pattern, 1.0)
	assert.InDelta(t, 0.40, trusted.FraudScore, 1e-9)
	assert.Equal(t, StatusCompleted, trusted.Status)

	// With the default trust factor the adjustment pushes it to 0.415.
	defaulted := scorer.Score(candidateAt(2, 3), pattern, NeutralTrustFactor)
	assert.InDelta(t, 0.415, defaulted.FraudScore, 1e-9)
	assert.Equal(t, StatusFlagged, defaulted.Status)
}
