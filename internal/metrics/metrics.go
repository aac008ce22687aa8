// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the ETL run.
//
// A global, pluggable Backend defaults to a no-op, so the recording helpers
// are always safe to call. Concrete systems (Prometheus Pushgateway,
// Datadog) live in subpackages and are installed with SetBackend.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Metric names.
const (
	StepTotal    = "etl_step_total"
	StepDuration = "etl_step_duration_seconds"
	FilesTotal   = "etl_files_total"
	RowsTotal    = "etl_rows_total"
	LookupsTotal = "etl_song_lookups_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Reset restores the no-op backend.
func Reset() { backend = nopBackend{} }

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep measures latency and success/failure of a run step
// ("catalog", "events", "summary").
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordFile counts one processed input file. pass is the extract kind,
// "song" or "event".
func RecordFile(job, pass string, err error) {
	backend.IncCounter(FilesTotal, 1, Labels{
		"job":    job,
		"pass":   pass,
		"status": status(err),
	})
}

// RecordRows counts rows submitted to table.
func RecordRows(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}

// RecordLookups counts song lookups by result ("matched" or "unmatched").
func RecordLookups(job, result string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(LookupsTotal, float64(delta), Labels{
		"job":    job,
		"result": result,
	})
}
