package amqpsink

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

func TestDialTimeout(t *testing.T) {
	assert.Equal(t, defaultDialTimeout, dialTimeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	d := dialTimeout(ctx)
	assert.LessOrEqual(t, d, 200*time.Millisecond)
	assert.Greater(t, d, time.Duration(0))

	long, cancelLong := context.WithTimeout(context.Background(), time.Hour)
	defer cancelLong()
	assert.Equal(t, defaultDialTimeout, dialTimeout(long))
}

func TestDeliver_SilentBrokerHonoursDeadline(t *testing.T) {
	// Accepts TCP connections but never speaks AMQP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	s, err := New(sink.Spec{Notification: config.Notification{
		Type: Kind, URL: "amqp://guest:guest@" + ln.Addr().String() + "/", Queue: "events",
	}})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = s.Deliver(ctx, event.New("test", "bucket1", "k", event.ObjectCreatedPut))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
