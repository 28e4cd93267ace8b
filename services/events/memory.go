package events

import (
	"context"
	"sync"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type Event struct {
	Topic   string
	Key     string
	Payload interface{}
}

// MemoryPublisher keeps published events in memory. Tests use it to assert side effects.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

var _ core.EventPublisher = (*MemoryPublisher)(nil) // interface compliance check

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Key: key, Payload: payload})
	return nil
}

// Events returns the events published so far, optionally only those of `topic`.
func (p *MemoryPublisher) Events(topic ...string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	events := make([]Event, 0, len(p.events))
	for _, e := range p.events {
		if len(topic) > 0 && e.Topic != topic[0] {
			continue
		}
		events = append(events, e)
	}
	return events
}
