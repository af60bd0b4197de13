package event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	recordVersion = "2.1"
	recordSource  = "aws:s3"
	defaultRegion = "us-east-1"
)

// Notification is the S3 event notification document.
type Notification struct {
	Records []Record `json:"Records"`
}

// Record is one entry of an S3 event notification.
type Record struct {
	EventVersion string    `json:"eventVersion"`
	EventSource  string    `json:"eventSource"`
	AWSRegion    string    `json:"awsRegion"`
	EventTime    time.Time `json:"eventTime"`
	EventName    string    `json:"eventName"`
	S3           Entity    `json:"s3"`
}

type Entity struct {
	SchemaVersion   string `json:"s3SchemaVersion"`
	ConfigurationID string `json:"configurationId,omitempty"`
	Bucket          Bucket `json:"bucket"`
	Object          Object `json:"object"`
}

type Bucket struct {
	Name string `json:"name"`
	ARN  string `json:"arn,omitempty"`
}

type Object struct {
	Key       string `json:"key"`
	Size      int64  `json:"size,omitempty"`
	ETag      string `json:"eTag,omitempty"`
	Sequencer string `json:"sequencer,omitempty"`
}

// FromNotification parses an S3 notification document into one Event per
// record. Records with a missing bucket or key are kept: they match no rule.
func FromNotification(source string, body []byte) ([]*Event, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("parse notification: %w", err)
	}
	events := make([]*Event, 0, len(n.Records))
	for _, r := range n.Records {
		// Keep the document shape sinks expect: one record per message.
		raw, err := json.Marshal(Notification{Records: []Record{r}})
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		ts := r.EventTime
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		events = append(events, &Event{
			ID:     uuid.New().String(),
			Bucket: r.S3.Bucket.Name,
			Key:    decodeKey(r.S3.Object.Key),
			Action: Action(strings.TrimPrefix(r.EventName, "s3:")),
			Size:   r.S3.Object.Size,
			ETag:   r.S3.Object.ETag,
			Time:   ts,
			Source: source,
			Raw:    raw,
		})
	}
	return events, nil
}

// decodeKey undoes the URL encoding S3 applies to object keys in
// notifications. Keys that fail to decode are used as-is.
func decodeKey(k string) string {
	d, err := url.QueryUnescape(k)
	if err != nil {
		return k
	}
	return d
}
