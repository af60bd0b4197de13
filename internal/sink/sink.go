package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
)

// ErrUnknownKind is reported (never returned by Resolve) when a filter
// names a notification type with no registered factory.
var ErrUnknownKind = errors.New("unknown notification type")

// Sink is the interface all delivery targets must satisfy.
// Implementations own their transport client, build it once and reuse it
// for every delivery; Deliver must be safe for concurrent use.
type Sink interface {
	// Kind returns the notification type the sink was built for.
	Kind() string
	// Deliver sends one event. A nil error means delivered; there are no retries.
	Deliver(ctx context.Context, ev *event.Event) error
	// Close releases the transport client.
	Close() error
}

// Spec is everything a factory needs to build one sink.
type Spec struct {
	RuleID       string
	Bucket       string
	Filter       string
	Notification config.Notification
	Logger       *zap.Logger
}

// Factory builds a sink. It must not perform network I/O.
type Factory func(spec Spec) (Sink, error)

// DeliveryError is a failed delivery, as reported by the dispatcher.
type DeliveryError struct {
	RuleID string
	Kind   string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s via %s: %v", e.RuleID, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Missing returns a configuration error naming an absent mandatory field.
func Missing(kind, field string) error {
	return fmt.Errorf("%w: %s notification requires %q", config.ErrInvalid, kind, field)
}
