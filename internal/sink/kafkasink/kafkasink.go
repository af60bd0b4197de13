package kafkasink

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

const Kind = "kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes each event to a Kafka topic keyed by "bucket/key", so every
// change to one object lands on the same partition.
type Sink struct {
	topic  string
	writer messageWriter
}

// New is the sink.Factory for "kafka". The writer dials brokers lazily.
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if len(n.Brokers) == 0 {
		return nil, sink.Missing(Kind, "brokers")
	}
	if n.Topic == "" {
		return nil, sink.Missing(Kind, "topic")
	}
	return &Sink{
		topic: n.Topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(n.Brokers...),
			Topic:        n.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strings.Join([]string{ev.Bucket, ev.Key}, "/")),
		Value: body,
		Time:  ev.Time,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(ev.ID)},
			{Key: "event-name", Value: []byte(ev.Action)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.writer.Close() }
