package storage_test

import (
	"context"
	"testing"

	"s3-object-manager/core/storage"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "http://localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Region:    "us-east-1",
			PathStyle: true,
		}

		client, err := storage.NewClient(context.Background(), cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
		assert.NotNil(t, client.API())
		assert.NotNil(t, client.Presign())
	})

	t.Run("DefaultEndpoint", func(t *testing.T) {
		cfg := storage.Config{
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Region:    "eu-west-1",
		}

		client, err := storage.NewClient(context.Background(), cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("Redial", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "https://s3.example.test",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(context.Background(), cfg)
		assert.NoError(t, err)

		api, presign, err := client.Redial(context.Background())
		assert.NoError(t, err)
		assert.NotNil(t, api)
		assert.NotNil(t, presign)
	})
}
