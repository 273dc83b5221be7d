// Package metrics exposes run observability counters. The join and
// normalization steps can lose rows without erroring, so every drop is
// counted here instead of disappearing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the application's own prometheus registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// UnknownCallNumbers counts ledger numbers that matched no directory entry
// in the last run; their seconds went unallocated.
var UnknownCallNumbers = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "telreport",
	Name:      "unknown_call_numbers",
	Help:      "Ledger numbers with no phone directory entry in the last run",
})

// UnknownCallSeconds totals the call seconds dropped by unmatched numbers.
var UnknownCallSeconds = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "telreport",
	Name:      "unknown_call_seconds",
	Help:      "Call seconds left unallocated because the number is not in the directory",
})

// IdleDirectoryNumbers counts directory numbers with no call traffic in the
// selected period.
var IdleDirectoryNumbers = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "telreport",
	Name:      "idle_directory_numbers",
	Help:      "Directory numbers that placed no outgoing calls in the period",
})

// RowsSkipped counts normalization rows dropped per source schema.
var RowsSkipped = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "telreport",
	Name:      "rows_skipped_total",
	Help:      "Malformed call rows dropped during normalization",
}, []string{"source"})

// DedupedRows is how many duplicate call rows the last bulk load collapsed.
// Overlapping monthly exports make a nonzero value normal; a spike means the
// same export landed in the directory twice.
var DedupedRows = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "telreport",
	Name:      "deduped_rows",
	Help:      "Duplicate call rows collapsed in the last bulk load",
})

// FetchRetries counts transient history-fetch failures that were retried.
var FetchRetries = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "telreport",
	Name:      "fetch_retries_total",
	Help:      "Transient CRM history fetch failures that triggered a retry",
})

// HeadcountMismatch is 1 when the roster employee total disagrees with the
// external headcount source.
var HeadcountMismatch = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "telreport",
	Name:      "headcount_mismatch",
	Help:      "1 if the roster employee total differs from the external headcount total",
})

// RunsTotal counts report runs by ingestion path and outcome.
var RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "telreport",
	Name:      "runs_total",
	Help:      "Report runs by path (files, history) and status (ok, error)",
}, []string{"path", "status"})

// ResetRunGauges clears the per-run gauges before a new run.
func ResetRunGauges() {
	UnknownCallNumbers.Set(0)
	UnknownCallSeconds.Set(0)
	IdleDirectoryNumbers.Set(0)
	DedupedRows.Set(0)
	HeadcountMismatch.Set(0)
}
