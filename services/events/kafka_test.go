package events

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaPublisher(t *testing.T) {
	pub := NewKafkaPublisher([]string{"localhost:9092"}, "fees.")
	w, ok := pub.writer.(*kafka.Writer)
	require.True(t, ok, "got %T", pub.writer)
	assert.Equal(t, "fees.", pub.prefix)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	// a bulk settlement publishes once per student
	assert.True(t, w.BatchTimeout > 0 && w.BatchTimeout <= 50*time.Millisecond, "batch timeout = %s", w.BatchTimeout)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := new(fakeWriter)
	pub := &KafkaPublisher{writer: w, prefix: "fees."}

	err := pub.Publish(context.Background(), "ledger.settlement.recorded", "s1", map[string]string{"student_id": "s1"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "fees.ledger.settlement.recorded", w.msgs[0].Topic)
	assert.Equal(t, []byte("s1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"student_id": "s1"}`, string(w.msgs[0].Value))

	err = pub.Publish(context.Background(), "x", "k", make(chan int))
	assert.Error(t, err)
	assert.Len(t, w.msgs, 1)

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}
