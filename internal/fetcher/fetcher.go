package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Fetcher moves bytes to and from a remote HTTP endpoint.
type Fetcher interface {
	// Get fetches the URL and returns the response body.
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// PostForm submits form as application/x-www-form-urlencoded and returns
	// the response body.
	PostForm(ctx context.Context, rawURL string, form url.Values) (io.ReadCloser, error)
}

// StatusError reports a non-200 response that was not retried, or that was
// still failing when retries ran out.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}
