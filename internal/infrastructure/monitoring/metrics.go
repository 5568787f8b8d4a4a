package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	InterestApplicationsTotal *prometheus.CounterVec
	BatchRunsTotal            prometheus.Counter
	BatchRunDuration          prometheus.Histogram
	SummaryReportsTotal       *prometheus.CounterVec
	ChargeReversalsTotal      prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "welfare_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		InterestApplicationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welfare_ledger_interest_applications_total",
				Help: "Total number of quarterly interest application attempts by outcome.",
			},
			[]string{"outcome"},
		),
		BatchRunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "welfare_ledger_interest_batch_runs_total",
				Help: "Total number of quarterly interest batch runs.",
			},
		),
		BatchRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "welfare_ledger_interest_batch_run_duration_seconds",
				Help:    "Histogram of quarterly interest batch run durations.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SummaryReportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welfare_ledger_summary_reports_total",
				Help: "Total number of summary reports computed, by scope.",
			},
			[]string{"scope"},
		),
		ChargeReversalsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "welfare_ledger_interest_charge_reversals_total",
				Help: "Total number of compensating interest charge reversals.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordInterestApplication(outcome string) {
	Business.InterestApplicationsTotal.WithLabelValues(outcome).Inc()
}

func RecordBatchRun(duration time.Duration) {
	Business.BatchRunsTotal.Inc()
	Business.BatchRunDuration.Observe(duration.Seconds())
}

func RecordSummaryReport(scope string) {
	Business.SummaryReportsTotal.WithLabelValues(scope).Inc()
}

func RecordChargeReversal() {
	Business.ChargeReversalsTotal.Inc()
}
