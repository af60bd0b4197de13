package snssink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/awsconf"
)

const Kind = "sns"

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sink publishes each event to a fixed SNS topic.
type Sink struct {
	topicARN string
	client   publishAPI
}

// New is the sink.Factory for "sns".
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if n.TopicARN == "" {
		return nil, sink.Missing(Kind, "topicArn")
	}
	cfg, err := awsconf.Load(n)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if n.Endpoint != "" {
			o.BaseEndpoint = aws.String(n.Endpoint)
		}
	})
	return &Sink{topicARN: n.TopicARN, client: client}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("Amazon S3 Notification"),
	})
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", s.topicARN, err)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
