package events

import (
	"fmt"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// NewPublisher returns a Kafka publisher when brokers are configured, and a log publisher otherwise.
func NewPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	if len(conf.Kafka.Brokers) == 0 || conf.TestMode {
		return NewLogPublisher(logger)
	}
	logger.Info(fmt.Sprintf("publishing ledger events to kafka brokers %v", conf.Kafka.Brokers))
	return NewKafkaPublisher(conf.Kafka.Brokers, conf.Kafka.TopicPrefix)
}
