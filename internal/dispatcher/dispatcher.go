package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/metrics"
	"github.com/gyaneshwarpardhi/s3notify/internal/rule"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

// abandonGrace bounds the wait for workers stuck in a sink that ignores
// cancellation.
const abandonGrace = time.Second

// Result is the outcome of one delivery attempt.
type Result struct {
	EventID   string        `json:"event_id"`
	RuleID    string        `json:"rule_id"`
	Sink      string        `json:"sink"`
	Delivered bool          `json:"delivered"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResultHook registers fn to observe every delivery outcome.
// fn is called from worker goroutines and must be safe for concurrent use.
func WithResultHook(fn func(Result)) Option {
	return func(d *Dispatcher) { d.onResult = fn }
}

// Dispatcher evaluates every rule against every event and hands each match
// to that rule's delivery lane. Deliveries are fire-and-forget: failures are
// logged and counted, never retried and never reported back to the event
// loop.
//
// Every rule owns a lane (a bounded queue and its own workers), so a slow
// or unreachable sink only fills its own queue and never delays or drops
// deliveries of other rules.
type Dispatcher struct {
	rules    *rule.Set
	lanes    []*lane
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *zap.Logger
	onResult func(Result)
}

// lane is the delivery queue and worker set of one rule.
type lane struct {
	rule *rule.Rule
	pool *workerPool[*event.Event]
}

// New creates a Dispatcher over rules and starts the delivery workers of
// every rule. conf.Workers and conf.QueueDepth apply per rule.
func New(rules *rule.Set, conf config.DispatcherConf, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := conf.Workers
	if workers <= 0 {
		workers = 1
	}
	depth := conf.QueueDepth
	if depth <= 0 {
		depth = workers * 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		rules:   rules,
		cancel:  cancel,
		timeout: conf.DeliveryTimeout(),
		logger:  logger.Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, r := range rules.All() {
		l := &lane{rule: r}
		l.pool = newWorkerPool[*event.Event](ctx, workers, depth, func(ctx context.Context, ev *event.Event) {
			d.deliver(ctx, l, ev)
		})
		d.lanes = append(d.lanes, l)
	}
	return d
}

// Run consumes events until ctx is cancelled or the channel is closed.
// It never waits on a delivery.
func (d *Dispatcher) Run(ctx context.Context, events <-chan *event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			metrics.PendingEvents.Set(float64(len(events)))
			d.Dispatch(ev)
		}
	}
}

// Dispatch evaluates all rules against ev, submits a delivery for each
// match and returns the IDs of the matching rules.
func (d *Dispatcher) Dispatch(ev *event.Event) []string {
	if ev == nil {
		return nil
	}
	metrics.EventsReceived.WithLabelValues(ev.Source).Inc()

	var matched []string
	for _, l := range d.lanes {
		r := l.rule
		if !r.Evaluate(ev) {
			continue
		}
		matched = append(matched, r.ID())
		metrics.RulesMatched.WithLabelValues(r.ID()).Inc()

		if !l.pool.Submit(ev) {
			metrics.DeliveriesDropped.WithLabelValues(r.ID()).Inc()
			d.logger.Warn("delivery queue full, dropping notification",
				zap.String("rule", r.ID()),
				zap.String("event_id", ev.ID),
				zap.Int("capacity", l.pool.QueueCap()),
			)
			d.report(Result{
				EventID: ev.ID,
				RuleID:  r.ID(),
				Sink:    r.Sink().Kind(),
				Reason:  "delivery queue full",
			})
			continue
		}
		metrics.QueuedDeliveries.WithLabelValues(r.ID()).Set(float64(l.pool.QueueLen()))
	}

	if len(matched) == 0 {
		metrics.EventsUnmatched.Inc()
		d.logger.Debug("event matched no rule",
			zap.String("event_id", ev.ID),
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key),
			zap.String("action", string(ev.Action)),
		)
	}
	return matched
}

func (d *Dispatcher) deliver(ctx context.Context, l *lane, ev *event.Event) {
	start := time.Now()
	r, s := l.rule, l.rule.Sink()
	metrics.QueuedDeliveries.WithLabelValues(r.ID()).Set(float64(l.pool.QueueLen()))

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	err := safeDeliver(ctx, s, ev)
	elapsed := time.Since(start)

	res := Result{
		EventID:   ev.ID,
		RuleID:    r.ID(),
		Sink:      s.Kind(),
		Delivered: err == nil,
		Duration:  elapsed,
	}
	status := "success"
	if err != nil {
		status = "error"
		derr := &sink.DeliveryError{RuleID: res.RuleID, Kind: res.Sink, Err: err}
		res.Reason = err.Error()
		d.logger.Error("notification delivery failed",
			zap.String("event_id", ev.ID),
			zap.String("bucket", ev.Bucket),
			zap.String("key", ev.Key),
			zap.Error(derr),
		)
	} else {
		d.logger.Debug("notification delivered",
			zap.String("rule", res.RuleID),
			zap.String("sink", res.Sink),
			zap.String("event_id", ev.ID),
			zap.Duration("took", elapsed),
		)
	}
	metrics.Deliveries.WithLabelValues(res.Sink, status).Inc()
	metrics.DeliveryDuration.WithLabelValues(res.Sink).Observe(float64(elapsed.Milliseconds()))
	d.report(res)
}

// safeDeliver turns a panicking sink into a failed delivery.
func safeDeliver(ctx context.Context, s sink.Sink, ev *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Deliver(ctx, ev)
}

func (d *Dispatcher) report(res Result) {
	if d.onResult != nil {
		d.onResult(res)
	}
}

// QueueUtilization returns queued deliveries / total queue capacity over
// all rules (0–1).
func (d *Dispatcher) QueueUtilization() float64 {
	var queued, capacity int
	for _, l := range d.lanes {
		queued += l.pool.QueueLen()
		capacity += l.pool.QueueCap()
	}
	if capacity == 0 {
		return 0
	}
	return float64(queued) / float64(capacity)
}

// Rules returns the rule set the dispatcher evaluates.
func (d *Dispatcher) Rules() *rule.Set { return d.rules }

// Shutdown stops accepting deliveries and lets queued ones finish until
// ctx is done; whatever is still in flight then is abandoned. The rule
// sinks are closed last.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	for _, l := range d.lanes {
		l.pool.Close()
	}
	done := make(chan struct{})
	go func() {
		for _, l := range d.lanes {
			l.pool.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		queued := 0
		for _, l := range d.lanes {
			queued += l.pool.QueueLen()
		}
		d.logger.Warn("abandoning in-flight deliveries", zap.Int("queued", queued))
		d.cancel()
		select {
		case <-done:
		case <-time.After(abandonGrace):
		}
	}
	d.cancel()
	return d.rules.Close()
}
