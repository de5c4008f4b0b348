package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/arcgis-admin-cli/internal/config"
)

func TestLocal_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	a := NewLocal(dir)

	loc, err := a.Put(context.Background(), "usage_20240105_101500.csv", []byte("Time_Slice,Request_Count\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "usage_20240105_101500.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "Time_Slice,Request_Count\n", string(data))

	_, err = a.Put(context.Background(), "usage_20240105_101500.csv", []byte("again"))
	assert.Error(t, err, "existing snapshot must not be overwritten")
}

func TestNew_Drivers(t *testing.T) {
	a, err := New(config.ArchiveConfig{Driver: "local"}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, a)

	_, err = New(config.ArchiveConfig{Driver: "s3"}, "")
	assert.ErrorContains(t, err, "s3 endpoint is required")

	_, err = New(config.ArchiveConfig{Driver: "gcs"}, "")
	assert.ErrorContains(t, err, "unknown driver")
}

func TestS3_Key(t *testing.T) {
	s, err := NewS3(config.S3Config{Endpoint: "minio:9000", Bucket: "gis", Prefix: "/usage-archive/"})
	require.NoError(t, err)
	assert.Equal(t, "usage-archive/u_20240105_101500.csv", s.Key("u_20240105_101500.csv"))

	s, err = NewS3(config.S3Config{Endpoint: "minio:9000", Bucket: "gis"})
	require.NoError(t, err)
	assert.Equal(t, "u.csv", s.Key("u.csv"))
}

func TestS3_Put(t *testing.T) {
	var mu sync.Mutex
	objects := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			objects[r.URL.Path] = string(body)
			mu.Unlock()
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	defer srv.Close()

	s, err := NewS3(config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "gis",
		Prefix:    "usage",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	loc, err := s.Put(context.Background(), "u_20240105_101500.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://gis/usage/u_20240105_101500.csv", loc)

	mu.Lock()
	defer mu.Unlock()
	// Plain-HTTP uploads may use aws-chunked encoding around the payload.
	assert.Contains(t, objects["/gis/usage/u_20240105_101500.csv"], "a,b\n")
}
