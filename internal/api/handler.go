package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/rule"
)

// Source is the event source name stamped on events received over HTTP.
const Source = "webhook"

const maxBodyBytes = 1 << 20

// Engine is the dispatcher view the handler needs.
type Engine interface {
	Rules() *rule.Set
	QueueUtilization() float64
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    Engine
	events chan<- *event.Event
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. Accepted events are
// pushed to events without blocking.
func New(eng Engine, events chan<- *event.Event, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{eng: eng, events: events, logger: logger.Named("api"), mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestNotification)
	h.mux.HandleFunc("GET /v1/rules", h.listRules)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.logger, h.mux)
}

// POST /v1/events: S3 event notification document (Records[]).
func (h *Handler) ingestNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	events, err := event.FromNotification(Source, body)
	if err != nil {
		h.fail(w, http.StatusBadRequest, fmt.Sprintf("invalid notification: %s", err))
		return
	}
	if len(events) == 0 {
		h.fail(w, http.StatusBadRequest, "notification must contain at least one record")
		return
	}

	queued := 0
	for _, ev := range events {
		select {
		case h.events <- ev:
			queued++
		default:
		}
	}
	if queued == 0 {
		h.fail(w, http.StatusTooManyRequests, fmt.Sprintf("event queue full (capacity %d)", cap(h.events)))
		return
	}
	h.respond(w, http.StatusAccepted, map[string]interface{}{
		"total":    len(events),
		"queued":   queued,
		"rejected": len(events) - queued,
	})
}

// GET /v1/rules: list loaded rules with their predicate chains.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules := h.eng.Rules()
	h.respond(w, http.StatusOK, map[string]interface{}{
		"count": rules.Len(),
		"rules": rules.Describe(),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the event or delivery queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	if c := cap(h.events); c > 0 {
		if e := float64(len(h.events)) / float64(c); e > util {
			util = e
		}
	}
	if util > 0.8 {
		h.respond(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}
