package fraud

import (
	"fmt"
	"math"
)

// Scoring weights and thresholds. The rules are additive and deliberately
// not mutually exclusive: the outlier and standard-deviation rules can both
// fire for the same amount, and their penalties stack.
const (
	// NeutralTrustFactor is used when a nonprofit has no trust record yet.
	// It matches the default score a freshly provisioned record carries.
	NeutralTrustFactor = 0.85

	newDonorScore = 0.5

	outlierWeight     = 0.4
	burstWeight       = 0.3
	thinHistoryWeight = 0.2
	oddHourWeight     = 0.25
	stdDevWeight      = 0.15
	trustWeight       = 0.1

	// deviationThreshold is strict: a deviation ratio of exactly 3.0 does
	// not trip the outlier rule.
	deviationThreshold = 3.0
	tinyAmountFraction = 0.1
	burstThreshold     = 3
	thinHistoryMin     = 5
	oddHourStart       = 2
	oddHourEnd         = 5

	blockThreshold = 0.7
	flagThreshold  = 0.4
)

// NewDonorReason is the single reason attached when no history exists
const NewDonorReason = "New donor - limited history"

// Scorer applies deterministic weighted heuristics to a candidate donation.
// It assumes the caller has already validated the amount as positive.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer { return &Scorer{} }

// Score combines the candidate, the nonprofit's donor pattern and its
// current trust factor into a fraud score, a reason list and the initial
// transaction status. pattern may be nil for a first-time nonprofit.
func (s *Scorer) Score(candidate DonationCandidate, pattern *DonorPattern, trustFactor float64) ScoreResult {
	if pattern == nil {
		return ScoreResult{
			FraudScore: newDonorScore,
			Reasons:    []string{NewDonorReason},
			Status:     StatusUnderReview,
		}
	}

	var score float64
	var reasons []string

	// Amount outlier: far from the historical mean, or suspiciously tiny.
	if pattern.AvgAmount > 0 {
		deviation := math.Abs(candidate.Amount-pattern.AvgAmount) / pattern.AvgAmount
		if deviation > deviationThreshold || candidate.Amount < tinyAmountFraction*pattern.MinAmount {
			score += outlierWeight
			reasons = append(reasons, fmt.Sprintf("Amount deviates %.1fx from the nonprofit average", deviation))
		}
	}

	// Donation burst inside the 5-minute window.
	if pattern.RecentBurstCount >= burstThreshold {
		score += burstWeight
		reasons = append(reasons, fmt.Sprintf("Burst activity: %d donations within 5 minutes", pattern.RecentBurstCount))
	}

	// Thin history.
	if pattern.TotalDonations < thinHistoryMin {
		score += thinHistoryWeight
		reasons = append(reasons, fmt.Sprintf("Limited history: only %d prior donations", pattern.TotalDonations))
	}

	// Odd hour, 02:00-05:59 UTC inclusive.
	hour := candidate.Timestamp.UTC().Hour()
	if hour >= oddHourStart && hour <= oddHourEnd {
		score += oddHourWeight
		reasons = append(reasons, fmt.Sprintf("Donation at unusual hour (%02d:00 UTC)", hour))
	}

	// Standard-deviation rule, evaluated independently of the outlier rule.
	if pattern.StdDevAmount > 0 && math.Abs(candidate.Amount-pattern.AvgAmount) > 2*pattern.StdDevAmount {
		score += stdDevWeight
		reasons = append(reasons, "Amount exceeds 2 standard deviations from the average")
	}

	// Trust adjustment, applied and recorded unconditionally.
	trustAdjustment := (1 - trustFactor) * trustWeight
	score += trustAdjustment
	reasons = append(reasons, fmt.Sprintf("Trust adjustment +%.3f (nonprofit trust %.2f)", trustAdjustment, trustFactor))

	score = clamp01(score)

	return ScoreResult{
		FraudScore: score,
		Reasons:    reasons,
		Status:     StatusForScore(score),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
