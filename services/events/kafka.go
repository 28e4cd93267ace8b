package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// Publish writes synchronously, so each call waits up to batchTimeout for the batch to fill.
const batchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event as a JSON message to `prefix + topic`.
type KafkaPublisher struct {
	writer messageWriter
	prefix string
}

var _ core.EventPublisher = (*KafkaPublisher)(nil) // interface compliance check

func NewKafkaPublisher(brokers []string, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           5 * time.Second,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
		prefix: topicPrefix,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	msg := kafka.Message{
		Topic: p.prefix + topic,
		Key:   []byte(key),
		Value: data,
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, msg), "writing to %s", msg.Topic)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
