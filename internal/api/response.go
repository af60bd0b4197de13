package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// respond writes v as JSON with the given status. The body is encoded
// before the header is sent, so an unencodable value becomes a 500 instead
// of a truncated reply.
func (h *Handler) respond(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("write response", zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string) {
	h.respond(w, status, errorResponse{Error: msg})
}
