// Package metrics records operational metrics for generator runs behind a
// small backend interface. The default backend is a no-op, so calls are
// always safe; concrete systems (Prometheus Pushgateway, Datadog) live in
// subpackages and are installed with SetBackend.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal           = "ubigeo_step_total"
	StepDurationSeconds = "ubigeo_step_duration_seconds"
	RecordsTotal        = "ubigeo_records_total"
	OutputBytesTotal    = "ubigeo_output_bytes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
//
// The generator runs once and exits, so backends are expected to buffer
// observations in memory and ship them on Flush. The Pushgateway backend
// pushes a registry; the Datadog backend flushes its statsd client.
//
// Behavior expected of implementations:
//   - IncCounter and ObserveHistogram never block on the network and never
//     fail; a backend that cannot record a sample drops it.
//   - Names are the constants declared in this package. A backend with a
//     fixed label schema (Prometheus) reads only the labels it declares and
//     ignores names it does not know.
//   - Flush may be called more than once. Errors from Flush are reported to
//     the caller, who logs them without failing the run.
//
// Implementations need not be safe for concurrent use; the generator records
// from a single goroutine.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value, in seconds for the
	// step durations emitted here.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (load, parse, render,
// write, apply) and records how long it took.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRecords adds delta to the record counter of the given kind.
//
// Kinds used by the generator:
//   - "parsed"
//   - "skipped"
//   - "duplicates"
//   - "emitted"
//   - "applied"
func RecordRecords(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordOutputBytes adds n to the bytes-written counter.
func RecordOutputBytes(job string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(OutputBytesTotal, float64(n), Labels{"job": job})
}
