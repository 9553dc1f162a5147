package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "phonesharing"

// Ledger operation outcomes.
const (
	OutcomeBooked          = "booked"
	OutcomeReturned        = "returned"
	OutcomeNoop            = "noop"
	OutcomeNotFound        = "not_found"
	OutcomeInvalidBooker   = "invalid_booker"
	OutcomeAlreadyBooked   = "already_booked"
	OutcomeConcurrentWrite = "concurrent_modification"
	OutcomeError           = "error"
)

// Metadata lookup results.
const (
	LookupCached  = "cached"
	LookupStored  = "stored"
	LookupRemote  = "remote"
	LookupDefault = "default"
)

// Metrics holds all prometheus metrics of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LedgerOperations *prometheus.CounterVec
	MetadataLookups  *prometheus.CounterVec
	OutboundDuration prometheus.Histogram
}

// New registers the metrics on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LedgerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Book and return operations by outcome",
		}, []string{"operation", "outcome"}),
		MetadataLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_lookups_total",
			Help:      "Resolved metadata lookups by where the value came from",
		}, []string{"result"}),
		OutboundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metadata_outbound_duration_seconds",
			Help:      "Duration of outbound Fonoapi requests",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) LedgerOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) MetadataLookup(result string) {
	if m == nil {
		return
	}
	m.MetadataLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOutbound(d time.Duration) {
	if m == nil {
		return
	}
	m.OutboundDuration.Observe(d.Seconds())
}
