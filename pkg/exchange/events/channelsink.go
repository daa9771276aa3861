package events

// ChannelSink buffers every emitted event on a Go channel, the way the
// teacher's test harnesses intercept events synchronously instead of going
// through a network sink. Tests assert on the events that Drain returns.
type ChannelSink struct {
	C chan Event
}

// NewChannelSink returns a sink with a buffered channel of the given
// capacity. Emit panics if the buffer fills, since a test sink should never
// silently drop records the engine emitted under lock.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{C: make(chan Event, capacity)}
}

// Emit implements Sink.
func (s *ChannelSink) Emit(e Event) {
	select {
	case s.C <- e:
	default:
		panic("events: ChannelSink buffer full")
	}
}

// Drain returns every event currently buffered, in emission order, without
// blocking.
func (s *ChannelSink) Drain() []Event {
	out := make([]Event, 0, len(s.C))
	for {
		select {
		case e := <-s.C:
			out = append(out, e)
		default:
			return out
		}
	}
}
