package fraud

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle status of a donation transaction
type TransactionStatus string

const (
	StatusFlagged     TransactionStatus = "flagged"
	StatusUnderReview TransactionStatus = "under_review"
	StatusCompleted   TransactionStatus = "completed"
	StatusBlocked     TransactionStatus = "blocked"
)

// TrustLevel is the trust tier of a nonprofit
type TrustLevel string

const (
	TrustLevelNormal      TrustLevel = "normal"
	TrustLevelWhitelisted TrustLevel = "whitelisted"
	TrustLevelUnderReview TrustLevel = "under_review"
)

// RiskAssessment buckets a nonprofit's recent activity
type RiskAssessment string

const (
	RiskLow    RiskAssessment = "low"
	RiskMedium RiskAssessment = "medium"
	RiskHigh   RiskAssessment = "high"
)

// Transaction represents a donation transaction.
// JSON field names match the platform's existing API (camelCase) and must
// not be renamed without coordinating with API consumers.
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	DonorID       uuid.UUID         `json:"donorId" db:"donor_id"`
	NonprofitID   uuid.UUID         `json:"nonprofitId" db:"nonprofit_id"`
	Amount        float64           `json:"amount" db:"amount"`
	FraudScore    float64           `json:"fraudScore" db:"fraud_score"`
	Status        TransactionStatus `json:"status" db:"status"`
	RiskReasons   []string          `json:"riskReasons" db:"risk_reasons"`
	ReviewerNotes *string           `json:"reviewerNotes,omitempty" db:"reviewer_notes"`
	ReviewedBy    *uuid.UUID        `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt    *time.Time        `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
}

// DonorPattern is the statistical profile of a nonprofit's donation history.
// It is derived on demand and never persisted as its own entity.
type DonorPattern struct {
	NonprofitID           uuid.UUID `json:"nonprofitId"`
	TotalDonations        int       `json:"totalDonations"`
	AvgAmount             float64   `json:"avgAmount"`
	StdDevAmount          float64   `json:"stdDevAmount"`
	MinAmount             float64   `json:"minAmount"`
	MaxAmount             float64   `json:"maxAmount"`
	CompletedTransactions int       `json:"completedTransactions"`
	RecentBurstCount      int       `json:"recentBurstCount"`
	AvgFraudScore         float64   `json:"avgFraudScore"`
	AvgFrequencyDays      float64   `json:"avgFrequencyDays"`
	ConsistencyScore      float64   `json:"consistencyScore"`
	FirstDonationAt       time.Time `json:"firstDonationAt"`
	LastDonationAt        time.Time `json:"lastDonationAt"`
}

// NonprofitTrustRecord is a nonprofit's aggregate trust state.
// It is provisioned when the nonprofit is onboarded; the scoring path only
// reads it, and only the trust feedback engine (or an admin) writes it.
type NonprofitTrustRecord struct {
	NonprofitID   uuid.UUID  `json:"nonprofitId" db:"nonprofit_id"`
	TrustScore    float64    `json:"trustScore" db:"trust_score"`
	TrustLevel    TrustLevel `json:"trustLevel" db:"trust_level"`
	ReviewReason  *string    `json:"reviewReason,omitempty" db:"review_reason"`
	WhitelistedAt *time.Time `json:"whitelistedAt,omitempty" db:"whitelisted_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// DonationCandidate is an incoming donation to be scored
type DonationCandidate struct {
	DonorID     uuid.UUID `json:"donorId"`
	NonprofitID uuid.UUID `json:"nonprofitId"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// ScoreResult is the outcome of scoring a single donation
type ScoreResult struct {
	FraudScore float64           `json:"fraudScore"`
	Reasons    []string          `json:"reasons"`
	Status     TransactionStatus `json:"status"`
}

// TrustMetrics summarizes the transaction window behind a trust recompute
type TrustMetrics struct {
	TotalTransactions     int     `json:"totalTransactions"`
	CompletedTransactions int     `json:"completedTransactions"`
	FlaggedTransactions   int     `json:"flaggedTransactions"`
	ConsistencyRatio      float64 `json:"consistencyRatio"`
	AvgFraudScore         float64 `json:"avgFraudScore"`
	FraudPenalty          float64 `json:"fraudPenalty"`
}

// TrustUpdate is the result of a trust recompute
type TrustUpdate struct {
	TrustScore float64      `json:"trustScore"`
	TrustLevel TrustLevel   `json:"trustLevel"`
	Metrics    TrustMetrics `json:"metrics"`
}

// DonorAnalytics is the analytics view of a nonprofit's donation activity
type DonorAnalytics struct {
	DonorProfile   *DonorPattern  `json:"donorProfile"`
	RecentActivity []*Transaction `json:"recentActivity"`
	RiskAssessment RiskAssessment `json:"riskAssessment"`
	Insights       []string       `json:"insights"`
}

// StatusOverride is a manual, admin-driven status change
type StatusOverride struct {
	Status        TransactionStatus `json:"status"`
	ReviewerNotes string            `json:"reviewerNotes"`
	ReviewedBy    uuid.UUID         `json:"reviewedBy"`
}

// ValidStatus reports whether s is a known transaction status
func ValidStatus(s TransactionStatus) bool {
	switch s {
	case StatusFlagged, StatusUnderReview, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}
