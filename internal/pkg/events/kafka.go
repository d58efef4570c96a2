// Package events delivers attendance lifecycle events to Kafka and to live
// SSE streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
)

// Transitions publish on the request path, so a single event is flushed
// immediately and a stuck broker gives up quickly.
const (
	batchTimeout     = 10 * time.Millisecond
	writeTimeout     = 2 * time.Second
	maxWriteAttempts = 3
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by employee so a
// single employee's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			Async:                  false,
			BatchSize:              1,
			BatchTimeout:           batchTimeout,
			WriteTimeout:           writeTimeout,
			MaxAttempts:            maxWriteAttempts,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish implements attendance.EventPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event attendance.Event) error {
	msg, err := messageFor(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func messageFor(event attendance.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.EmployeeID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "attendance_id", Value: []byte(event.AttendanceID)},
		},
	}, nil
}
