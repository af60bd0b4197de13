package redissink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

const Kind = "redis"

// Sink PUBLISHes events on a Redis pub/sub channel.
type Sink struct {
	channel string
	client  *redis.Client
}

// New is the sink.Factory for "redis". url is a redis:// URL.
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if n.URL == "" {
		return nil, sink.Missing(Kind, "url")
	}
	channel := n.Channel
	if channel == "" {
		channel = n.Topic
	}
	if channel == "" {
		return nil, sink.Missing(Kind, "channel")
	}
	opts, err := redis.ParseURL(n.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return &Sink{channel: channel, client: redis.NewClient(opts)}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.client.Close() }
