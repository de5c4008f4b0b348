package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
)

func testFetcher(retries int) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		MaxRetries:  retries,
		RatePerHost: rate.Inf,
		MaxBackoff:  5 * time.Millisecond,
	})
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close() //nolint:errcheck
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestHTTPFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "gisadmin/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = w.Write([]byte(`{"folders":["Hydro"]}`))
	}))
	defer srv.Close()

	body, err := testFetcher(1).Get(context.Background(), srv.URL+"/arcgis/admin/services?f=json")
	require.NoError(t, err)
	assert.Equal(t, `{"folders":["Hydro"]}`, readAll(t, body))
}

func TestHTTPFetcher_PostFormReplaysBodyOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "admin", r.PostForm.Get("username"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	form := url.Values{"username": {"admin"}, "f": {"json"}}
	body, err := testFetcher(3).PostForm(context.Background(), srv.URL+"/generateToken", form)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"abc"}`, readAll(t, body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Get(context.Background(), srv.URL+"/missing?token=secret")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.NotContains(t, se.Error(), "secret")
	assert.False(t, resilience.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_ExhaustedRetriesAreTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(2).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testFetcher(3).Get(ctx, srv.URL)
	require.Error(t, err)
}

func TestAdaptiveLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 1)

	lim.OnRateLimit()
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.001)
	lim.OnRateLimit()
	lim.OnRateLimit()
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.001, "floored at a quarter")

	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.001, "capped at double")
}

func TestRedact(t *testing.T) {
	u, err := url.Parse("https://user:pw@gis.example.com/arcgis/rest/services?token=abc&f=json")
	require.NoError(t, err)
	assert.Equal(t, "https://gis.example.com/arcgis/rest/services", redact(u))
}
