package integrity

import (
	"sync"

	"github.com/trezcool/darasa/core"
)

// Event describes one applied repair, for operational auditing.
// It is a side channel: business logic never consumes it.
type Event struct {
	Owner   core.Kind
	OwnerID string
	Field   string
	Outcome Outcome
}

// EventSink receives repair events.
type EventSink interface {
	Record(Event)
}

type logSink struct {
	log core.Logger
}

var _ EventSink = (*logSink)(nil)

// NewLogSink returns a sink that reports repairs through the app logger.
func NewLogSink(log core.Logger) EventSink {
	return &logSink{log: log}
}

func (s *logSink) Record(ev Event) {
	s.log.Warn("healed dangling reference", map[string]interface{}{
		"owner":    string(ev.Owner),
		"owner_id": ev.OwnerID,
		"field":    ev.Field,
		"outcome":  ev.Outcome.String(),
	})
}

// CaptureSink collects events in memory; tests assert on them instead of
// parsing log output.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

var _ EventSink = (*CaptureSink)(nil)

func (s *CaptureSink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := make([]Event, len(s.events))
	copy(evs, s.events)
	return evs
}
