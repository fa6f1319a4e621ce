package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an in-memory Backend for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("jobA", "parse", nil, 2*time.Second)
	RecordStep("jobB", "write", errors.New("disk full"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d, want 2/2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["job"] != "jobA" || c0.labels["step"] != "parse" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", c0.labels)
	}

	h0 := fb.histograms[0]
	if h0.name != StepDurationSeconds {
		t.Fatalf("hist[0].name = %q", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value = %v; want ~2.0", h0.value)
	}

	c1 := fb.counters[1]
	if c1.labels["status"] != "failure" || c1.labels["step"] != "write" {
		t.Fatalf("counter[1] labels = %v", c1.labels)
	}
	if v := fb.histograms[1].value; v < 1.5-0.001 || v > 1.5+0.001 {
		t.Fatalf("hist[1].value = %v; want ~1.5", v)
	}
}

func TestRecordRecordsAndBytes(t *testing.T) {
	fb := install(t)

	RecordRecords("seed", "parsed", 123)
	RecordRecords("seed", "skipped", 0) // ignored
	RecordRecords("seed", "emitted", 123)
	RecordOutputBytes("seed", 4096)
	RecordOutputBytes("seed", -1) // ignored

	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != RecordsTotal || c.delta != 123 || c.labels["kind"] != "parsed" {
		t.Fatalf("counter[0] = %#v", c)
	}
	if c := fb.counters[1]; c.labels["kind"] != "emitted" || c.labels["job"] != "seed" {
		t.Fatalf("counter[1] = %#v", c)
	}
	if c := fb.counters[2]; c.name != OutputBytesTotal || c.delta != 4096 {
		t.Fatalf("counter[2] = %#v", c)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	install(t)

	fb := &fakeBackend{}
	SetBackend(fb)
	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
