package redissink_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/redissink"
)

func TestNew_Validation(t *testing.T) {
	_, err := redissink.New(sink.Spec{Notification: config.Notification{Channel: "c"}})
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, err = redissink.New(sink.Spec{Notification: config.Notification{URL: "redis://localhost:6379"}})
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, err = redissink.New(sink.Spec{Notification: config.Notification{URL: "http://x", Channel: "c"}})
	assert.Error(t, err)
}

func TestDeliver_Publishes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "s3:bucket1")
	defer ps.Close()
	_, err := ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	s, err := redissink.New(sink.Spec{Notification: config.Notification{
		Type: "redis", URL: "redis://" + mr.Addr(), Channel: "s3:bucket1",
	}})
	require.NoError(t, err)
	defer s.Close()

	ev := event.New("test", "bucket1", "folder1/x.json", event.ObjectCreatedPut)
	require.NoError(t, s.Deliver(ctx, ev))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3:bucket1", msg.Channel)
	assert.Contains(t, msg.Payload, `"folder1/x.json"`)
}

func TestDeliver_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := redissink.New(sink.Spec{Notification: config.Notification{URL: "redis://" + mr.Addr(), Channel: "c"}})
	require.NoError(t, err)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, s.Deliver(ctx, event.New("test", "b", "k", event.ObjectCreatedPut)))
}
