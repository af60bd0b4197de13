package rule

import (
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

// Rule is one (bucket, filter) pair: an ordered predicate chain bound to
// a sink. Rules are immutable once built and shared by all deliveries.
type Rule struct {
	bucket     string
	filter     string
	predicates []Predicate
	sink       sink.Sink
}

// New builds a rule. The chain always starts with BucketEquals, followed by
// the optional prefix, suffix and action predicates in that order; empty
// constraints add nothing.
func New(bucket, filter, prefix, suffix string, actions []string, s sink.Sink) *Rule {
	preds := []Predicate{BucketEquals{Name: bucket}}
	if prefix != "" {
		preds = append(preds, PrefixMatch{Prefix: prefix})
	}
	if suffix != "" {
		preds = append(preds, SuffixMatch{Suffix: suffix})
	}
	if a := NewActionIn(actions); a != nil {
		preds = append(preds, a)
	}
	return &Rule{bucket: bucket, filter: filter, predicates: preds, sink: s}
}

// ID is "bucket/filter".
func (r *Rule) ID() string { return r.bucket + "/" + r.filter }

func (r *Rule) Bucket() string          { return r.bucket }
func (r *Rule) Filter() string          { return r.filter }
func (r *Rule) Sink() sink.Sink         { return r.sink }
func (r *Rule) Predicates() []Predicate { return r.predicates }

// Evaluate is a short-circuit AND over the predicate chain.
func (r *Rule) Evaluate(ev *event.Event) bool {
	for _, p := range r.predicates {
		if !p.Test(ev) {
			return false
		}
	}
	return true
}
