package rule

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

// Build constructs one Rule per (bucket, filter) in configuration order.
// Each filter's sink is resolved through reg, so unknown notification types
// degrade to the log sink. A filter without a bucket name, or a sink whose
// mandatory fields are missing, fails the whole build; sinks built so far
// are closed.
func Build(cfg *config.Config, reg *sink.Registry, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := &Set{}
	for i, b := range cfg.Buckets {
		if len(b.Filters) == 0 {
			continue
		}
		if b.Name == "" {
			_ = set.Close()
			return nil, fmt.Errorf("%w: buckets[%d]: %d filter(s) without a bucket name", config.ErrInvalid, i, len(b.Filters))
		}
		for j, f := range b.Filters {
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("filter-%d", j)
			}
			spec := sink.Spec{
				RuleID:       b.Name + "/" + name,
				Bucket:       b.Name,
				Filter:       name,
				Notification: f.Notification,
				Logger:       logger,
			}
			s, err := reg.Resolve(spec)
			if err != nil {
				_ = set.Close()
				return nil, err
			}
			r := New(b.Name, name, f.Prefix, f.Suffix, f.Events, s)
			logger.Info("created event notification",
				zap.String("rule", r.ID()),
				zap.String("sink", s.Kind()),
				zap.Int("predicates", len(r.predicates)),
			)
			set.rules = append(set.rules, r)
		}
	}
	return set, nil
}
