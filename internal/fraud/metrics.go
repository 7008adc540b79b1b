package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	donationsScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_fraud_scored_total",
			Help: "Donations scored by the fraud engine, by resulting status",
		},
		[]string{"status"},
	)

	trustDowngradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "donation_fraud_trust_downgrades_total",
			Help: "Nonprofits automatically moved to under_review by trust feedback",
		},
	)

	trustWhitelistsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "donation_fraud_trust_whitelists_total",
			Help: "Nonprofits automatically whitelisted by trust feedback",
		},
	)

	patternCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_fraud_pattern_cache_requests_total",
			Help: "Donor pattern cache lookups, by outcome",
		},
		[]string{"outcome"},
	)
)
