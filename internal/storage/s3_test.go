package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appconfig "github.com/jellyjess/nail-salon/internal/config"
)

func TestNewS3StoreValidation(t *testing.T) {
	_, err := NewS3Store(context.Background(), appconfig.StorageConfig{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewS3Store(context.Background(), appconfig.StorageConfig{Bucket: "b"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewS3StorePublicURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), appconfig.StorageConfig{
		Endpoint: "http://localhost:9000/", Bucket: "salon", AccessKey: "k", SecretKey: "s", UsePathStyle: true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/salon", s.publicURL)

	assert.Equal(t, "https://cdn.test", publicBaseURL(appconfig.StorageConfig{PublicBaseURL: "https://cdn.test/"}, "eu-west-2"))
	assert.Equal(t, "https://salon.s3.eu-west-2.amazonaws.com", publicBaseURL(appconfig.StorageConfig{Bucket: "salon"}, "eu-west-2"))
}
