package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
)

type stubSink struct{ kind string }

func (s *stubSink) Kind() string                                 { return s.kind }
func (s *stubSink) Deliver(context.Context, *event.Event) error { return nil }
func (s *stubSink) Close() error                                 { return nil }

func stubFactory(kind string) Factory {
	return func(Spec) (Sink, error) { return &stubSink{kind: kind}, nil }
}

func TestResolve_EmptyTypeIsLog(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubFactory(KindLog), KindLog)

	s, err := reg.Resolve(Spec{})
	require.NoError(t, err)
	assert.Equal(t, KindLog, s.Kind())
}

func TestResolve_NoFallback(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Resolve(Spec{})
	assert.Error(t, err)
}

func TestResolve_FactoryError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.Register(func(Spec) (Sink, error) { return nil, boom }, "queue")
	_, err := reg.Resolve(Spec{RuleID: "b/f", Notification: notification("queue")})
	assert.ErrorIs(t, err, boom)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubFactory("a"), "a")
	assert.Panics(t, func() { reg.Register(stubFactory("a"), "A") })
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("refused")
	err := &DeliveryError{RuleID: "b/f", Kind: "sqs", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "deliver b/f via sqs: refused", err.Error())
}

func notification(kind string) config.Notification {
	return config.Notification{Type: kind}
}
