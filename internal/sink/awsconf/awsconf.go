// Package awsconf builds the aws.Config shared by the SQS and SNS sinks.
package awsconf

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
)

// Load resolves region and credentials for a notification block.
// Static keys are used when present (local emulators); otherwise the
// default credential chain applies. No network I/O happens here.
func Load(n config.Notification) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if n.Region != "" {
		opts = append(opts, awsconfig.WithRegion(n.Region))
	}
	if n.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(n.AccessKeyID, n.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// BaseEndpoint returns scheme://host of rawURL, or "" if it has neither.
func BaseEndpoint(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", nil
	}
	return u.Scheme + "://" + u.Host, nil
}
