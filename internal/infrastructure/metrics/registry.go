package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minho-cho/card-billing-backend/internal/service/billing"
)

// Registry holds the prometheus collectors for the billing core
type Registry struct {
	postings   *prometheus.CounterVec
	batchRuns  *prometheus.CounterVec
	batchItems *prometheus.CounterVec
}

// NewRegistry creates and registers the billing collectors
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_postings_total",
			Help: "Transactions posted to bills, by outcome",
		}, []string{"outcome"}),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_batch_runs_total",
			Help: "Scheduler batch runs, by step",
		}, []string{"step"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_batch_items_total",
			Help: "Per-entity outcomes within scheduler batches, by step and outcome",
		}, []string{"step", "outcome"}),
	}
	reg.MustRegister(r.postings, r.batchRuns, r.batchItems)
	return r
}

// RecordPosting counts one posting attempt
func (r *Registry) RecordPosting(succeeded bool) {
	r.postings.WithLabelValues(outcome(succeeded)).Inc()
}

// RecordBatch counts one batch run and its per-entity outcomes
func (r *Registry) RecordBatch(step string, result billing.BatchResult) {
	r.batchRuns.WithLabelValues(step).Inc()
	r.batchItems.WithLabelValues(step, "success").Add(float64(result.Succeeded))
	r.batchItems.WithLabelValues(step, "failure").Add(float64(result.Failed))
}

func outcome(succeeded bool) string {
	if succeeded {
		return "success"
	}
	return "failure"
}
