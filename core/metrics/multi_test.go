package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordDispatch([]DispatchEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordBatch(BatchEvent) error {
	r.count++
	return nil
}

type dispatchOnly struct{ count int }

func (d *dispatchOnly) RecordDispatch([]DispatchEvent) error {
	d.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordDispatch(nil); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}
	if err := m.RecordBatch(BatchEvent{}); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSink_SkipsSinksWithoutBatchSupport(t *testing.T) {
	d := &dispatchOnly{}
	m := NewMultiSink(d)
	if err := m.RecordBatch(BatchEvent{}); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if d.count != 0 {
		t.Fatalf("unexpected forward")
	}
}

func TestMultiSink_FirstError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	if err := NewMultiSink(s1, s2).RecordDispatch(nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if s2.count != 0 {
		t.Fatalf("second sink should not be called after error")
	}
}

func TestNopSink_RecordsBatches(t *testing.T) {
	var sink MetricsSink = NopSink{}
	rec, ok := sink.(BatchRecorder)
	if !ok {
		t.Fatal("NopSink should record batches")
	}
	if err := rec.RecordBatch(BatchEvent{RunID: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
