package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/api"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/rule"
)

type nopSink struct{}

func (nopSink) Kind() string                                { return "log" }
func (nopSink) Deliver(context.Context, *event.Event) error { return nil }
func (nopSink) Close() error                                { return nil }

type fakeEngine struct {
	rules *rule.Set
	util  float64
}

func (f *fakeEngine) Rules() *rule.Set          { return f.rules }
func (f *fakeEngine) QueueUtilization() float64 { return f.util }

func newServer(t *testing.T, buffer int) (*httptest.Server, chan *event.Event, *fakeEngine) {
	t.Helper()
	eng := &fakeEngine{rules: rule.NewSet(
		rule.New("bucket1", "to-log", "folder1/", "", []string{"ObjectCreated:*"}, nopSink{}),
	)}
	events := make(chan *event.Event, buffer)
	srv := httptest.NewServer(api.New(eng, events, nil))
	t.Cleanup(srv.Close)
	return srv, events, eng
}

const notification = `{"Records":[
	{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"bucket1"},"object":{"key":"folder1/a.json"}}},
	{"eventSource":"aws:s3","eventName":"ObjectRemoved:Delete","s3":{"bucket":{"name":"bucket1"},"object":{"key":"folder1/b.json"}}}
]}`

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url+"/v1/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestIngest_QueuesEveryRecord(t *testing.T) {
	srv, events, _ := newServer(t, 8)

	resp, out := post(t, srv.URL, notification)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.EqualValues(t, 2, out["queued"])
	require.Len(t, events, 2)

	first := <-events
	assert.Equal(t, "bucket1", first.Bucket)
	assert.Equal(t, "folder1/a.json", first.Key)
	assert.Equal(t, event.ObjectCreatedPut, first.Action)
	assert.Equal(t, api.Source, first.Source)
}

func TestIngest_PartialWhenBufferFills(t *testing.T) {
	srv, _, _ := newServer(t, 1)

	resp, out := post(t, srv.URL, notification)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.EqualValues(t, 1, out["queued"])
	assert.EqualValues(t, 1, out["rejected"])

	resp, _ = post(t, srv.URL, notification)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestIngest_BadRequests(t *testing.T) {
	srv, events, _ := newServer(t, 8)

	for name, body := range map[string]string{
		"invalid json": `{"Records":`,
		"no records":   `{"Records":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, out := post(t, srv.URL, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
	assert.Empty(t, events)
}

func TestListRules(t *testing.T) {
	srv, _, _ := newServer(t, 1)

	resp, err := http.Get(srv.URL + "/v1/rules")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Count int         `json:"count"`
		Rules []rule.Info `json:"rules"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "bucket1/to-log", out.Rules[0].ID)
	assert.Equal(t, "log", out.Rules[0].Sink)
	assert.Len(t, out.Rules[0].Predicates, 3)
}

func TestReadyz(t *testing.T) {
	srv, _, eng := newServer(t, 1)

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	eng.util = 0.9
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _, _ := newServer(t, 1)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
