package sqssink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/awsconf"
)

const Kind = "sqs"

type sendAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Sink sends each event as one SQS message to a fixed queue URL.
type Sink struct {
	queueURL string
	client   sendAPI
}

// New is the sink.Factory for "sqs". The service endpoint is taken from
// "endpoint" or, failing that, from the scheme and host of "queueUrl".
func New(spec sink.Spec) (sink.Sink, error) {
	n := spec.Notification
	if n.QueueURL == "" {
		return nil, sink.Missing(Kind, "queueUrl")
	}
	endpoint := n.Endpoint
	if endpoint == "" {
		ep, err := awsconf.BaseEndpoint(n.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("queueUrl: %w", err)
		}
		endpoint = ep
	}
	cfg, err := awsconf.Load(n)
	if err != nil {
		return nil, err
	}
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &Sink{queueURL: n.QueueURL, client: client}, nil
}

func (s *Sink) Kind() string { return Kind }

func (s *Sink) Deliver(ctx context.Context, ev *event.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes(ev),
	})
	if err != nil {
		return fmt.Errorf("sqs send to %s: %w", s.queueURL, err)
	}
	return nil
}

func (s *Sink) Close() error { return nil }

// attributes returns the bucket and action message attributes. SQS rejects
// empty string values, so unset fields are left out.
func attributes(ev *event.Event) map[string]types.MessageAttributeValue {
	attrs := make(map[string]types.MessageAttributeValue, 2)
	for name, v := range map[string]string{"bucket": ev.Bucket, "action": string(ev.Action)} {
		if v != "" {
			attrs[name] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
