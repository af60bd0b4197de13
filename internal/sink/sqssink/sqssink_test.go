package sqssink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

const queueURL = "http://127.0.0.1:1212/queue/local-bucket1-events"

func TestNew_RequiresQueueURL(t *testing.T) {
	_, err := New(sink.Spec{Notification: config.Notification{Type: Kind}})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_BuildsClient(t *testing.T) {
	s, err := New(sink.Spec{Notification: config.Notification{
		Type: Kind, QueueURL: queueURL, Region: "eu-west-1", AccessKeyID: "x", SecretAccessKey: "y",
	}})
	require.NoError(t, err)
	assert.Equal(t, Kind, s.Kind())
	assert.NoError(t, s.Close())
}

func TestDeliver(t *testing.T) {
	fake := &fakeSQS{}
	s := &Sink{queueURL: queueURL, client: fake}

	ev := event.New("test", "bucket1", "folder1/x.json", event.ObjectCreatedPut)
	require.NoError(t, s.Deliver(context.Background(), ev))

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, queueURL, aws.ToString(in.QueueUrl))

	var n event.Notification
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &n))
	require.Len(t, n.Records, 1)
	assert.Equal(t, "aws:s3", n.Records[0].EventSource)
	assert.Equal(t, "bucket1", n.Records[0].S3.Bucket.Name)
	assert.Equal(t, "folder1/x.json", n.Records[0].S3.Object.Key)
	assert.Equal(t, "bucket1", aws.ToString(in.MessageAttributes["bucket"].StringValue))
}

func TestDeliver_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	s := &Sink{queueURL: queueURL, client: &fakeSQS{err: boom}}

	err := s.Deliver(context.Background(), event.New("test", "bucket1", "k", event.ObjectCreatedPut))
	assert.ErrorIs(t, err, boom)
}

func TestDeliver_OmitsEmptyAttributes(t *testing.T) {
	fake := &fakeSQS{}
	s := &Sink{queueURL: queueURL, client: fake}

	require.NoError(t, s.Deliver(context.Background(), &event.Event{Bucket: "bucket1", Key: "k"}))
	require.Len(t, fake.inputs, 1)
	attrs := fake.inputs[0].MessageAttributes
	assert.NotContains(t, attrs, "action")
	assert.Equal(t, "bucket1", aws.ToString(attrs["bucket"].StringValue))

	require.NoError(t, s.Deliver(context.Background(), &event.Event{Key: "k"}))
	assert.Nil(t, fake.inputs[1].MessageAttributes)
	for _, in := range fake.inputs {
		for name, v := range in.MessageAttributes {
			assert.NotEmpty(t, aws.ToString(v.StringValue), name)
		}
	}
}
