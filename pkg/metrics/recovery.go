package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecoveryMetrics records outcomes of the abandoned-cart recovery funnel.
type RecoveryMetrics struct {
	emailsSent  *prometheus.CounterVec
	recovered   prometheus.Counter
	expired     prometheus.Counter
	redemptions *prometheus.CounterVec
}

// NewRecoveryMetrics registers the recovery funnel metrics on the provided registerer.
func NewRecoveryMetrics(reg prometheus.Registerer) *RecoveryMetrics {
	if reg == nil {
		return &RecoveryMetrics{}
	}
	emailsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "banners",
		Name:      "recovery_emails_sent",
		Help:      "Recovery emails sent, labeled by sequence number.",
	}, []string{"sequence"})
	recovered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "banners",
		Name:      "carts_recovered",
		Help:      "Abandoned carts that converted into orders.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "banners",
		Name:      "carts_expired",
		Help:      "Abandoned carts that aged out of the recovery window.",
	})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "banners",
		Name:      "discount_redemptions",
		Help:      "Discount code redemption attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(emailsSent, recovered, expired, redemptions)
	return &RecoveryMetrics{
		emailsSent:  emailsSent,
		recovered:   recovered,
		expired:     expired,
		redemptions: redemptions,
	}
}

// IncEmailSent increments the sent counter for the given email sequence (1-3).
func (r *RecoveryMetrics) IncEmailSent(sequence int) {
	if r == nil || r.emailsSent == nil {
		return
	}
	r.emailsSent.WithLabelValues(sequenceLabel(sequence)).Inc()
}

// IncRecovered increments the recovered cart counter.
func (r *RecoveryMetrics) IncRecovered() {
	if r == nil || r.recovered == nil {
		return
	}
	r.recovered.Inc()
}

// IncExpired increments the expired cart counter.
func (r *RecoveryMetrics) IncExpired() {
	if r == nil || r.expired == nil {
		return
	}
	r.expired.Inc()
}

// IncRedemption increments the redemption counter for the given outcome.
func (r *RecoveryMetrics) IncRedemption(outcome string) {
	if r == nil || r.redemptions == nil {
		return
	}
	r.redemptions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func sequenceLabel(sequence int) string {
	switch sequence {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "unknown"
	}
}
