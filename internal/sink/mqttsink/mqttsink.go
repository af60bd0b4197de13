package mqttsink

import (
	"context"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

const Kind = "mqtt"

// client is the subset of mqtt.Client the sink uses.
type client interface {
	IsConnectionOpen() bool
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Sink publishes events to an MQTT topic.
type Sink struct {
	topic string
	qos   byte

	mu     sync.Mutex
	client client
}

// New is the sink.Factory for "mqtt". The client connects on first delivery.
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	broker := n.URL
	if broker == "" && len(n.Brokers) > 0 {
		broker = n.Brokers[0]
	}
	if broker == "" {
		return nil, sink.Missing(Kind, "url")
	}
	if n.Topic == "" {
		return nil, sink.Missing(Kind, "topic")
	}
	if n.QoS < 0 || n.QoS > 2 {
		return nil, fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", n.QoS)
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("s3notify-" + uuid.NewString()[:8]).
		SetCleanSession(true).
		SetAutoReconnect(true)
	return &Sink{
		topic:  n.Topic,
		qos:    byte(n.QoS),
		client: mqtt.NewClient(opts),
	}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}
	if err := wait(ctx, s.client.Publish(s.topic, s.qos, false, body)); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", s.topic, err)
	}
	return nil
}

func (s *Sink) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client.IsConnectionOpen() {
		return nil
	}
	if err := wait(ctx, s.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func wait(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) Close() error {
	s.client.Disconnect(250)
	return nil
}
