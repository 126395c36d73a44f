package events

import (
	"sync"

	"afriswap/internal/model"
)

// Sink receives committed audit events. Sink errors never abort the
// operation that produced the events; callers log and move on.
type Sink interface {
	PutEventBatch(events []model.Event) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) PutEventBatch([]model.Event) error { return nil }

// Memory keeps events in memory, oldest first. Used in tests and by the
// read API for recent-event queries.
type Memory struct {
	mu     sync.Mutex
	events []model.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) PutEventBatch(events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// All returns a copy of every recorded event.
func (m *Memory) All() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Multi fans a batch out to several sinks, returning the first error after
// attempting all of them.
type Multi []Sink

func (m Multi) PutEventBatch(events []model.Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.PutEventBatch(events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
