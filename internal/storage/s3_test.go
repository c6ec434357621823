package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Storage(t *testing.T) {
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566/", // LocalStack-like endpoint
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.Bucket, storage.bucket)
	assert.Equal(t, cfg.Region, storage.region)
	assert.Equal(t, "http://localhost:4566", storage.endpoint)
}

func TestNewS3Storage_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"no bucket", S3Config{Region: "us-east-1"}},
		{"no region", S3Config{Bucket: "b"}},
		{"empty", S3Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Storage(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, ErrS3NotConfigured)
		})
	}
}

func TestS3Storage_ObjectURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
		want     string
	}{
		{"aws", "", "sample.nwb", "https://bucket.s3.eu-west-1.amazonaws.com/sample.nwb"},
		{"aws with prefix", "", "shared/sample.nwb", "https://bucket.s3.eu-west-1.amazonaws.com/shared/sample.nwb"},
		{"escaped", "", "shared/my file#1.nwb", "https://bucket.s3.eu-west-1.amazonaws.com/shared/my%20file%231.nwb"},
		{"ampersand and plus", "", "shared/a&b+c.nwb", "https://bucket.s3.eu-west-1.amazonaws.com/shared/a%26b%2Bc.nwb"},
		{"custom endpoint", "http://minio:9000", "sample.nwb", "http://minio:9000/bucket/sample.nwb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &S3Storage{bucket: "bucket", region: "eu-west-1", endpoint: tt.endpoint}
			assert.Equal(t, tt.want, s.ObjectURL(tt.key))
		})
	}
}

func TestS3Storage_Upload_MockServer(t *testing.T) {
	// Create a mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.HasSuffix(r.URL.Path, "/test-bucket/shared/test-key.nwb") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != "test content" {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(context.Background(), cfg)
	require.NoError(t, err)

	content := []byte("test content")
	url, err := storage.Upload(context.Background(), "shared/test-key.nwb", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/test-bucket/shared/test-key.nwb", url)
}

func TestS3Storage_Upload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer server.Close()

	storage, err := NewS3Storage(context.Background(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	_, err = storage.Upload(context.Background(), "k", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload to S3")
}

func TestDisabled_Upload(t *testing.T) {
	var u Uploader = Disabled{}
	url, err := u.Upload(context.Background(), "key", strings.NewReader("data"), 4)
	assert.ErrorIs(t, err, ErrS3NotConfigured)
	assert.Empty(t, url)
}
