package sink

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// KindLog is the sink every unrecognised notification type degrades to.
const KindLog = "log"

// Registry maps notification type strings to sink factories.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under one or more kinds. Panics on duplicate kind
// to surface misconfiguration early.
func (r *Registry) Register(f Factory, kinds ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range kinds {
		k = strings.ToLower(k)
		if _, exists := r.factories[k]; exists {
			panic(fmt.Sprintf("sink registry: duplicate kind %q", k))
		}
		r.factories[k] = f
	}
}

// Resolve builds the sink for spec. An empty type means "log"; a type with
// no factory falls back to the log sink with a warning. Errors come only
// from the selected factory (e.g. a missing mandatory field).
func (r *Registry) Resolve(spec Spec) (Sink, error) {
	kind := strings.ToLower(strings.TrimSpace(spec.Notification.Type))
	if kind == "" {
		kind = KindLog
	}

	r.mu.RLock()
	f, ok := r.factories[kind]
	if !ok {
		f, ok = r.factories[KindLog]
		if ok && spec.Logger != nil {
			spec.Logger.Warn("falling back to log notification",
				zap.String("rule", spec.RuleID),
				zap.String("type", kind),
				zap.Error(ErrUnknownKind),
			)
		}
		kind = KindLog
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("sink registry: no factory for %q and no %q fallback", spec.Notification.Type, KindLog)
	}
	s, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %s sink: %w", spec.RuleID, kind, err)
	}
	return s, nil
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
