package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "keyauth"

// Outcome labels shared by the counters below.
const (
	OutcomeOK = "ok"
)

type Metrics struct {
	ChallengesIssued *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	GuardDecisions   *prometheus.CounterVec
	UsageUpdates     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Challenge requests by outcome.",
		}, []string{"outcome"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "HMAC verification attempts by outcome.",
		}, []string{"outcome"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Protected route admission decisions by guard and outcome.",
		}, []string{"guard", "outcome"}),
		UsageUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_updates_total",
			Help:      "Credential last-used updates by outcome.",
		}, []string{"outcome"}),
	}
}

// NewNop returns metrics bound to a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
