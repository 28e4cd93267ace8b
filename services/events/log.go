package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// LogPublisher writes events to the logger; used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil) // interface compliance check

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	p.logger.Info(fmt.Sprintf("event %s [%s]: %s", topic, key, data))
	return nil
}
