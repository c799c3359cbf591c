package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcomes reported on billingrelay_webhook_requests_total.
const (
	OutcomeProcessed        = "processed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeReplayRejected   = "replay_rejected"
	OutcomeInvalid          = "invalid"
	OutcomeUnsupported      = "unsupported_event_type"
	OutcomeUnresolvable     = "unresolvable_tenant"
	OutcomeOrgNotFound      = "org_not_found"
	OutcomeIgnored          = "ignored"
	OutcomeError            = "error"
)

// WebhookCollector exposes webhook ingestion counters on the Prometheus registry.
type WebhookCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookCollector registers the webhook collectors with reg.
func NewWebhookCollector(reg prometheus.Registerer) (*WebhookCollector, error) {
	c := &WebhookCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billingrelay",
			Name:      "webhook_requests_total",
			Help:      "Payment webhook deliveries by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billingrelay",
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling a payment webhook delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	for _, collector := range []prometheus.Collector{c.requests, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records a single delivery outcome.
func (c *WebhookCollector) Observe(provider, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "unknown"
	}
	c.requests.WithLabelValues(provider, outcome).Inc()
	c.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
