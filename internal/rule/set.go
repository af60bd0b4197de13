package rule

import "errors"

// Set holds the built rules in configuration order. It is read-only after
// Build and safe to share between goroutines.
type Set struct {
	rules []*Rule
}

// NewSet wraps already-built rules.
func NewSet(rules ...*Rule) *Set {
	return &Set{rules: rules}
}

// All returns the rules in configuration order.
func (s *Set) All() []*Rule { return s.rules }

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Lookup returns a rule by its "bucket/filter" ID (nil if not found).
func (s *Set) Lookup(id string) *Rule {
	for _, r := range s.rules {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// Info is the read-only view of a rule used by the rules listing.
type Info struct {
	ID         string   `json:"id"`
	Bucket     string   `json:"bucket"`
	Filter     string   `json:"filter"`
	Sink       string   `json:"sink"`
	Predicates []string `json:"predicates"`
}

// Describe lists every rule with its predicate chain.
func (s *Set) Describe() []Info {
	out := make([]Info, 0, len(s.rules))
	for _, r := range s.rules {
		preds := make([]string, 0, len(r.predicates))
		for _, p := range r.predicates {
			preds = append(preds, p.String())
		}
		out = append(out, Info{
			ID:         r.ID(),
			Bucket:     r.bucket,
			Filter:     r.filter,
			Sink:       r.sink.Kind(),
			Predicates: preds,
		})
	}
	return out
}

// Close closes every rule's sink once.
func (s *Set) Close() error {
	var errs []error
	for _, r := range s.rules {
		if err := r.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
