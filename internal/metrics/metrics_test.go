package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
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
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
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

	RecordStep("sparkify", "catalog", nil, 2*time.Second)
	RecordStep("sparkify", "events", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 || len(fb.callsHistograms) != 2 {
		t.Fatalf("got %d counters, %d histograms; want 2, 2", len(fb.callsCounters), len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["step"] != "catalog" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", cc0.labels)
	}
	if h0 := fb.callsHistograms[0]; h0.name != StepDuration || h0.value < 1.999 || h0.value > 2.001 {
		t.Fatalf("hist[0] = %#v; want %s ~2.0", h0, StepDuration)
	}

	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want failure", got)
	}
}

func TestRecordFileRowsLookups(t *testing.T) {
	fb := install(t)

	RecordFile("sparkify", "song", nil)
	RecordFile("sparkify", "event", errors.New("bad line"))
	RecordRows("sparkify", "songplays", 7)
	RecordRows("sparkify", "songplays", 0) // ignored
	RecordLookups("sparkify", "matched", 1)
	RecordLookups("sparkify", "unmatched", -1) // ignored

	want := []counterCall{
		{FilesTotal, 1, Labels{"job": "sparkify", "pass": "song", "status": "success"}},
		{FilesTotal, 1, Labels{"job": "sparkify", "pass": "event", "status": "failure"}},
		{RowsTotal, 7, Labels{"job": "sparkify", "table": "songplays"}},
		{LookupsTotal, 1, Labels{"job": "sparkify", "result": "matched"}},
	}
	if len(fb.callsCounters) != len(want) {
		t.Fatalf("expected %d counter calls, got %d", len(want), len(fb.callsCounters))
	}
	for i, w := range want {
		got := fb.callsCounters[i]
		if got.name != w.name || got.delta != w.delta {
			t.Fatalf("counter[%d] = %#v; want %#v", i, got, w)
		}
		for k, v := range w.labels {
			if got.labels[k] != v {
				t.Fatalf("counter[%d].labels[%s]=%q; want %q", i, k, got.labels[k], v)
			}
		}
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	fb := install(t)

	SetBackend(nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d; want 1", fb.flushCount)
	}

	Reset()
	if _, ok := backend.(nopBackend); !ok {
		t.Fatalf("Reset did not restore the no-op backend, got %T", backend)
	}
}
