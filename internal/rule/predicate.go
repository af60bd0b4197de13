package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
)

// Predicate is a pure boolean test over an event. Missing event fields
// never match.
type Predicate interface {
	Test(ev *event.Event) bool
	String() string
}

// -----------------------------------------------------------------------
// BucketEquals
// -----------------------------------------------------------------------

// BucketEquals passes when the event bucket equals the configured name.
type BucketEquals struct{ Name string }

func (p BucketEquals) Test(ev *event.Event) bool {
	return ev != nil && ev.Bucket != "" && ev.Bucket == p.Name
}

func (p BucketEquals) String() string { return fmt.Sprintf("bucket == %q", p.Name) }

// -----------------------------------------------------------------------
// PrefixMatch / SuffixMatch
// -----------------------------------------------------------------------

// PrefixMatch is a literal (non-glob) prefix test on the object key.
type PrefixMatch struct{ Prefix string }

func (p PrefixMatch) Test(ev *event.Event) bool {
	return ev != nil && ev.Key != "" && strings.HasPrefix(ev.Key, p.Prefix)
}

func (p PrefixMatch) String() string { return fmt.Sprintf("key has prefix %q", p.Prefix) }

// SuffixMatch is a literal (non-glob) suffix test on the object key.
type SuffixMatch struct{ Suffix string }

func (p SuffixMatch) Test(ev *event.Event) bool {
	return ev != nil && ev.Key != "" && strings.HasSuffix(ev.Key, p.Suffix)
}

func (p SuffixMatch) String() string { return fmt.Sprintf("key has suffix %q", p.Suffix) }

// -----------------------------------------------------------------------
// ActionIn
// -----------------------------------------------------------------------

// ActionIn passes when the event action is one of a configured set.
// Names may carry the "s3:" prefix used in bucket notification
// configurations, and "<Category>:*" matches the whole category.
type ActionIn struct {
	names      map[string]struct{}
	categories map[string]struct{}
}

// NewActionIn builds the predicate. It returns nil for an empty set:
// no constraint, not "match nothing".
func NewActionIn(actions []string) *ActionIn {
	p := &ActionIn{
		names:      make(map[string]struct{}),
		categories: make(map[string]struct{}),
	}
	for _, a := range actions {
		a = strings.TrimPrefix(strings.TrimSpace(a), "s3:")
		if a == "" {
			continue
		}
		if cat, ok := strings.CutSuffix(a, ":*"); ok {
			p.categories[cat] = struct{}{}
			continue
		}
		p.names[a] = struct{}{}
	}
	if len(p.names) == 0 && len(p.categories) == 0 {
		return nil
	}
	return p
}

func (p *ActionIn) Test(ev *event.Event) bool {
	if ev == nil || ev.Action == "" {
		return false
	}
	if _, ok := p.names[string(ev.Action)]; ok {
		return true
	}
	_, ok := p.categories[ev.Action.Category()]
	return ok
}

func (p *ActionIn) String() string {
	all := make([]string, 0, len(p.names)+len(p.categories))
	for n := range p.names {
		all = append(all, n)
	}
	for c := range p.categories {
		all = append(all, c+":*")
	}
	sort.Strings(all)
	return "action in [" + strings.Join(all, ", ") + "]"
}
