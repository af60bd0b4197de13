package natssink

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

const Kind = "nats"

type publisher interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Sink publishes events on a NATS subject and flushes, so a delivery only
// counts once the server has the message.
type Sink struct {
	subject string
	connect func() (publisher, error)

	mu   sync.Mutex
	conn publisher
}

// New is the sink.Factory for "nats". The connection is opened on first
// delivery and reconnects on its own afterwards.
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if n.URL == "" {
		return nil, sink.Missing(Kind, "url")
	}
	subject := n.Subject
	if subject == "" {
		subject = n.Topic
	}
	if subject == "" {
		return nil, sink.Missing(Kind, "subject")
	}
	url := n.URL
	return &Sink{
		subject: subject,
		connect: func() (publisher, error) {
			return nats.Connect(url,
				nats.Name("s3notify"),
				nats.MaxReconnects(-1),
			)
		},
	}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	conn, err := s.connection()
	if err != nil {
		return err
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	msg.Header.Set("S3-Event-Name", string(ev.Action))
	if err := conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.subject, err)
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush %s: %w", s.subject, err)
	}
	return nil
}

func (s *Sink) connection() (publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := s.connect()
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	s.conn = conn
	return conn, nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}
