// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch ETL run is too short-lived to be scraped, so the
// registry is pushed once at the end of the run through Flush.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend. The job label is the
// Pushgateway grouping key and is not repeated on the collectors.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec
	stepDuration  *prometheus.SummaryVec
	fileCounter   *prometheus.CounterVec
	rowCounter    *prometheus.CounterVec
	lookupCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend for jobName (default
// "sparkify_etl").
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sparkify_etl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run steps executed, by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of run steps in seconds, by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		fileCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "Input files processed, by pass (song, event) and status.",
		}, []string{"pass", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows submitted to the store, by table.",
		}, []string{"table"}),
		lookupCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.LookupsTotal,
			Help: "Song lookups for playback events, by result.",
		}, []string{"result"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":   b.stepCounter,
		"step summary":   b.stepDuration,
		"file counter":   b.fileCounter,
		"row counter":    b.rowCounter,
		"lookup counter": b.lookupCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	var (
		vec  *prometheus.CounterVec
		lbls []string
	)
	switch name {
	case metrics.StepTotal:
		vec, lbls = b.stepCounter, []string{labels["step"], labels["status"]}
	case metrics.FilesTotal:
		vec, lbls = b.fileCounter, []string{labels["pass"], labels["status"]}
	case metrics.RowsTotal:
		vec, lbls = b.rowCounter, []string{labels["table"]}
	case metrics.LookupsTotal:
		vec, lbls = b.lookupCounter, []string{labels["result"]}
	}
	if vec == nil {
		return
	}
	vec.WithLabelValues(lbls...).Add(delta)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the
// job's previous group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
