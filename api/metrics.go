/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counters for the things operators page on: reports built, degraded
  source fetches, ledger mutations, and credit rejections. Exposed on
  GET /metrics.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtr_reports_built_total",
		Help: "Reconciliation reports built, by view.",
	}, []string{"view"})

	sourceFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dtr_source_fetch_failures_total",
		Help: "Snapshot sources that degraded to empty during reconciliation.",
	}, []string{"source"})

	ledgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdo_ledger_mutations_total",
		Help: "CDO ledger write operations, by operation and outcome.",
	}, []string{"op", "outcome"})

	creditRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cdo_insufficient_credit_rejections_total",
		Help: "Consume requests rejected for insufficient remaining credits.",
	})
)

func observeLedgerOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ledgerMutations.WithLabelValues(op, outcome).Inc()
}
