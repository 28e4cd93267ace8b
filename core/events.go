package core

import "context"

// EventPublisher is any service that can publish domain events to a topic.
// key groups related events (e.g. by period) on the same partition.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}
