package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the S3 event name of a mutation, e.g. "ObjectCreated:Put".
type Action string

const (
	ObjectCreatedPut       Action = "ObjectCreated:Put"
	ObjectCreatedPost      Action = "ObjectCreated:Post"
	ObjectCreatedCopy      Action = "ObjectCreated:Copy"
	ObjectCreatedMultipart Action = "ObjectCreated:CompleteMultipartUpload"
	ObjectRemovedDelete    Action = "ObjectRemoved:Delete"
	ObjectRemovedMarker    Action = "ObjectRemoved:DeleteMarkerCreated"
)

// Category returns the part before the colon ("ObjectCreated", "ObjectRemoved").
func (a Action) Category() string {
	s := string(a)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Event is the canonical record of one storage mutation.
// It is never modified after construction and is shared read-only
// between all rules and sinks that see it.
type Event struct {
	ID     string    `json:"id"`
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Action Action    `json:"action"`
	Size   int64     `json:"size,omitempty"`
	ETag   string    `json:"etag,omitempty"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"` // backend that emitted the event

	// Raw is the backend's own payload, forwarded verbatim when present.
	Raw json.RawMessage `json:"-"`
}

// New builds an Event with a fresh ID and the current time.
func New(source, bucket, key string, action Action) *Event {
	return &Event{
		ID:     uuid.New().String(),
		Bucket: bucket,
		Key:    key,
		Action: action,
		Time:   time.Now().UTC(),
		Source: source,
	}
}

// Payload returns the message body sinks deliver: the raw backend payload
// if one was captured, otherwise a single-record S3 notification document.
func (e *Event) Payload() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(Notification{Records: []Record{e.Record()}})
}

// Record renders the event as an S3 notification record.
func (e *Event) Record() Record {
	return Record{
		EventVersion: recordVersion,
		EventSource:  recordSource,
		AWSRegion:    defaultRegion,
		EventTime:    e.Time,
		EventName:    string(e.Action),
		S3: Entity{
			SchemaVersion: "1.0",
			Bucket: Bucket{
				Name: e.Bucket,
				ARN:  "arn:aws:s3:::" + e.Bucket,
			},
			Object: Object{
				Key:  e.Key,
				Size: e.Size,
				ETag: e.ETag,
			},
		},
	}
}
