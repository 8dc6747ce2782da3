package metrics

// MultiSink fanouts dispatch events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the events to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(events []DispatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(events); err != nil {
			return err
		}
	}
	return nil
}

// RecordBatch forwards batch summaries when supported by the sink.
func (m *MultiSink) RecordBatch(ev BatchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BatchRecorder); ok {
			if err := rec.RecordBatch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
