package amqpsink

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

const Kind = "rabbitmq"

const defaultDialTimeout = 30 * time.Second

// Kinds are the notification types this sink registers under.
var Kinds = []string{Kind, "amqp"}

// Sink publishes events to a RabbitMQ exchange. With the default exchange
// the routing key is the queue name, which is declared durable on connect.
//
// The connection is opened on first delivery and re-opened after it drops;
// publishes are serialised on a single channel.
type Sink struct {
	url        string
	exchange   string
	routingKey string
	logger     *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New is the sink.Factory for "rabbitmq" and "amqp".
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if n.URL == "" {
		return nil, sink.Missing(Kind, "url")
	}
	if n.Queue == "" {
		return nil, sink.Missing(Kind, "queue")
	}
	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		url:        n.URL,
		exchange:   n.Exchange,
		routingKey: n.Queue,
		logger:     logger.With(zap.String("rule", spec.RuleID)),
	}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channelLocked(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Time,
		Type:         string(ev.Action),
		Body:         body,
	})
	if err != nil {
		s.resetLocked()
		return fmt.Errorf("rabbitmq publish %s/%s: %w", s.exchange, s.routingKey, err)
	}
	return nil
}

func (s *Sink) channelLocked(ctx context.Context) (*amqp.Channel, error) {
	if s.conn != nil && !s.conn.IsClosed() && s.channel != nil && !s.channel.IsClosed() {
		return s.channel, nil
	}
	s.resetLocked()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Dial:      amqp.DefaultDial(dialTimeout(ctx)),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": "s3notify",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if s.exchange == "" {
		if _, err := ch.QueueDeclare(s.routingKey, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rabbitmq queue declare %s: %w", s.routingKey, err)
		}
	}
	s.conn, s.channel = conn, ch
	s.logger.Info("rabbitmq sink connected", zap.String("exchange", s.exchange), zap.String("routing_key", s.routingKey))
	return ch, nil
}

// dialTimeout bounds connect and handshake by the delivery deadline.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if d := time.Until(deadline); d < defaultDialTimeout {
		return max(d, time.Millisecond)
	}
	return defaultDialTimeout
}

func (s *Sink) resetLocked() {
	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}
