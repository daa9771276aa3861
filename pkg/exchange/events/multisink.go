package events

// MultiSink fans every emitted event out to a fixed set of sinks, the way a
// deployment runs a LogSink, a WebSocketSink, and a durable store off the
// same event stream simultaneously. Emit calls each sink in order on the
// caller's goroutine: sinks that need to be asynchronous (WebSocketSink)
// already buffer internally.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink wraps the given sinks in emission order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Emit implements Sink.
func (m *MultiSink) Emit(e Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}

var _ Sink = (*MultiSink)(nil)
