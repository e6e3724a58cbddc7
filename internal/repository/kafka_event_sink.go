package repository

import (
	"context"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	pkgkafka "SentiPulse/pkg/kafka"
)

// Producer is the part of pkg/kafka.Producer the sink needs.
type Producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaEventSink writes events to the events topic keyed by ticker so one
// instrument's events stay on one partition.
type KafkaEventSink struct {
	producer Producer
	topic    string
}

func NewKafkaEventSink(producer Producer, topic string) *KafkaEventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

var _ domrepo.EventSink = (*KafkaEventSink)(nil)

func (s *KafkaEventSink) Name() string { return "kafka" }

func (s *KafkaEventSink) Deliver(ctx context.Context, e models.Event) error {
	return s.producer.PublishBatch(ctx, s.topic, []pkgkafka.Message{{
		Key:   []byte(e.Ticker),
		Value: e,
		Headers: map[string]string{
			"event": e.Name,
		},
	}})
}
