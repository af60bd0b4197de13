package logsink

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

// Sink writes matched events to the process logger.
// Supported levels: info, debug, warn, error. "log" and unknown levels
// log at info.
type Sink struct {
	bucket string
	filter string
	level  zapcore.Level
	logger *zap.Logger
}

// New is the sink.Factory for "log".
func New(spec sink.Spec) (sink.Sink, error) {
	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		bucket: spec.Bucket,
		filter: spec.Filter,
		level:  parseLevel(spec.Notification.Level),
		logger: logger.Named("notification"),
	}, nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (s *Sink) Kind() string { return sink.KindLog }

func (s *Sink) Deliver(_ context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.logger.Log(s.level,
		fmt.Sprintf("Firing notification on '%s' for filter '%s'", s.bucket, s.filter),
		zap.String("event_id", ev.ID),
		zap.ByteString("event", body),
	)
	return nil
}

func (s *Sink) Close() error { return nil }
