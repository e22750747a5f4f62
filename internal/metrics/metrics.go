package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	FetchCount            prometheus.Counter
	EmailsProcessed       prometheus.Counter
	TransactionsExtracted prometheus.Counter
	Duplicates            prometheus.Counter
	Failures              prometheus.Counter
	UnresolvedMerchants   prometheus.Counter
	ProcessingTime        prometheus.Histogram
	ActiveRules           prometheus.Gauge
	TotalRules            prometheus.Gauge
}

// NewMetrics registers the service metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FetchCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_fetch_count",
			Help: "Total number of mailbox fetch operations",
		}),
		EmailsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_emails_processed",
			Help: "Total number of emails run through extraction",
		}),
		TransactionsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_transactions_extracted",
			Help: "Total number of transaction candidates produced",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_duplicates",
			Help: "Emails skipped because their content was already ingested",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_failures",
			Help: "Emails that failed to parse or store",
		}),
		UnresolvedMerchants: factory.NewCounter(prometheus.CounterOpts{
			Name: "receipt_extractor_unresolved_merchants",
			Help: "Transactions whose merchant could not be resolved",
		}),
		ProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipt_extractor_processing_duration_seconds",
			Help:    "Time spent processing one fetch cycle",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveRules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "receipt_extractor_active_rules",
			Help: "Number of enabled merchant mapping rules",
		}),
		TotalRules: factory.NewGauge(prometheus.GaugeOpts{
			Name: "receipt_extractor_total_rules",
			Help: "Total number of merchant mapping rules (enabled and disabled)",
		}),
	}
}
