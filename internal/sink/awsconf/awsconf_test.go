package awsconf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/s3notify/internal/config"
)

func TestBaseEndpoint(t *testing.T) {
	ep, err := BaseEndpoint("http://127.0.0.1:1212/queue/local-bucket1-events")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1212", ep)

	ep, err = BaseEndpoint("local-bucket1-events")
	require.NoError(t, err)
	assert.Empty(t, ep)

	_, err = BaseEndpoint("http://[::1")
	assert.Error(t, err)
}

func TestLoad_StaticCredentials(t *testing.T) {
	cfg, err := Load(config.Notification{Region: "eu-west-1", AccessKeyID: "x", SecretAccessKey: "y"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", creds.AccessKeyID)
}
