package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/source"
)

func TestConfig_EndpointURL(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{"NoProtocolHTTP", Config{Endpoint: "minio:9000"}, "http://minio:9000"},
		{"NoProtocolHTTPS", Config{Endpoint: "s3.example.com", UseSSL: true}, "https://s3.example.com"},
		{"WithProtocol", Config{Endpoint: "https://s3.example.com", UseSSL: false}, "https://s3.example.com"},
		{"Empty", Config{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.EndpointURL())
		})
	}
}

func TestNew_Credentials(t *testing.T) {
	_, err := New(Config{Endpoint: "minio:9000", AccessKeyID: "key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be given together")

	store, err := New(Config{Endpoint: "minio:9000", AccessKeyID: "key", SecretAccessKey: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", store.config.Region)
}

func TestStore_PresignGetObject(t *testing.T) {
	store, err := New(Config{
		Endpoint:        "minio.local:9000",
		Region:          "eu-west-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	url, err := store.PresignGetObject(context.Background(), "bucket", "top10/top10.gml.zip", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://minio.local:9000/bucket/top10/top10.gml.zip?"), url)
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "X-Amz-Signature=")
}

// fakeS3 answers HeadObject requests for a single known key.
func fakeS3(t *testing.T) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		switch r.URL.Path {
		case "/bucket/top10/top10.gpkg":
			w.Header().Set("Content-Length", "1234")
			w.Header().Set("Content-Type", "application/geopackage+sqlite3")
			w.Header().Set("ETag", `"abc123"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			w.WriteHeader(http.StatusOK)
		case "/bucket/top10/folder/":
			w.Header().Set("Content-Length", "0")
			w.Header().Set("Content-Type", "application/x-directory")
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	store, err := New(Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return store
}

func TestStore_StatObject(t *testing.T) {
	ctx := context.Background()
	store := fakeS3(t)

	meta, err := store.StatObject(ctx, "bucket", "top10/top10.gpkg")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), meta.Size)
	assert.Equal(t, "application/geopackage+sqlite3", meta.ContentType)
	assert.Equal(t, "abc123", meta.ETag)
	assert.Equal(t, 2006, meta.LastModified.Year())
	assert.False(t, meta.IsDir)

	_, err = store.StatObject(ctx, "bucket", "top10/missing.gpkg")
	assert.ErrorIs(t, err, atomfeed.ErrObjectNotFound)
}

func TestStore_DirectoryMarker(t *testing.T) {
	ctx := context.Background()
	store := fakeS3(t)

	meta, err := store.StatObject(ctx, "bucket", "top10/folder/")
	require.NoError(t, err)
	assert.True(t, meta.IsDir)

	a, err := source.New(store, source.Config{SourceBucket: "bucket", SourcePrefix: "top10"})
	require.NoError(t, err)

	for _, filename := range []string{"folder/", "folder"} {
		t.Run(filename, func(t *testing.T) {
			_, err := a.Size(ctx, filename)
			assert.ErrorIs(t, err, atomfeed.ErrNotAFile)
		})
	}

	size, err := a.Size(ctx, "top10.gpkg")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	_, err = a.Size(ctx, "missing.gpkg")
	assert.ErrorIs(t, err, atomfeed.ErrObjectNotFound)
}
