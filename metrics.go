package seqdiff

import (
	"fmt"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

/*
Labels and operation names for seqdiff metrics.
*/

const (
	LabelOp      = "op"
	LabelSuccess = "success"

	opBuild     = "build"
	opProduct   = "product"
	opConcatIn  = "concat_inner"
	opConcatOut = "concat_outer"
)

// Metrics collects timings and sizes of diffs produced by builders and
// combinators.
type Metrics struct {
	Duration metrics.Histogram
	Moved    metrics.Histogram
	Changed  metrics.Histogram
	Dropped  metrics.Counter
}

// NewMetrics returns metrics that are discarded.
func NewMetrics() *Metrics {
	return &Metrics{
		Duration: discard.NewHistogram(),
		Moved:    discard.NewHistogram(),
		Changed:  discard.NewHistogram(),
		Dropped:  discard.NewCounter(),
	}
}

// NewPrometheusMetrics registers seqdiff metrics under namespace with the
// default Prometheus registry. Call it once per namespace.
func NewPrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Duration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seqdiff",
			Name:      "duration_seconds",
			Help:      "Time spent producing one diff.",
			Buckets:   stdprometheus.DefBuckets,
		}, []string{LabelOp, LabelSuccess}),
		Moved: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seqdiff",
			Name:      "moved_slots",
			Help:      "Slots moved by the permutation of one diff.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 8),
		}, []string{LabelOp}),
		Changed: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seqdiff",
			Name:      "changed_slots",
			Help:      "Values written by one diff.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 8),
		}, []string{LabelOp}),
		Dropped: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seqdiff",
			Name:      "dropped_diffs_total",
			Help:      "Diffs ignored because their input was unsubscribed.",
		}, []string{LabelOp}),
	}
}

func (m *Metrics) observe(op string, begin time.Time, err error) {
	m.Duration.With(
		LabelOp, op,
		LabelSuccess, fmt.Sprint(err == nil),
	).Observe(time.Since(begin).Seconds())
}

func (m *Metrics) record(op string, moved, changed int) {
	m.Moved.With(LabelOp, op).Observe(float64(moved))
	m.Changed.With(LabelOp, op).Observe(float64(changed))
}

func (m *Metrics) drop(op string) {
	m.Dropped.With(LabelOp, op).Add(1)
}
