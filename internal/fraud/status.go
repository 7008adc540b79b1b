package fraud

import "time"

// StatusForScore derives the initial transaction status from a clamped
// fraud score. New-donor scoring bypasses this and forces under_review.
func StatusForScore(score float64) TransactionStatus {
	switch {
	case score > blockThreshold:
		return StatusBlocked
	case score > flagThreshold:
		return StatusFlagged
	default:
		return StatusCompleted
	}
}

// ApplyOverride applies a manual, admin-driven status change to a
// transaction. Any status may move to any other status at any time; no
// status is terminal. The engine only assigns the initial status and does
// not guard later transitions, which belong to the admin workflow.
func ApplyOverride(tx *Transaction, override StatusOverride, at time.Time) {
	tx.Status = override.Status
	if override.ReviewerNotes != "" {
		notes := override.ReviewerNotes
		tx.ReviewerNotes = &notes
	}
	reviewer := override.ReviewedBy
	tx.ReviewedBy = &reviewer
	reviewedAt := at
	tx.ReviewedAt = &reviewedAt
}
