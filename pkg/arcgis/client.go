// Package arcgis provides a client for the ArcGIS Server administrator API
// and the Portal for ArcGIS / ArcGIS Online sharing API.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
)

// Token error codes returned in ArcGIS JSON error bodies.
const (
	codeInvalidToken  = 498
	codeTokenRequired = 499
)

// Error is an ArcGIS JSON error body. ArcGIS delivers these with HTTP 200.
type Error struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// Transient reports whether the server-side condition is worth retrying.
func (e *Error) Transient() bool {
	return resilience.IsTransientHTTPStatus(e.Code)
}

func (e *Error) tokenRejected() bool {
	return e.Code == codeInvalidToken || e.Code == codeTokenRequired
}

// Credentials authenticate against generateToken.
type Credentials struct {
	Username string
	Password string
}

// Option configures the client.
type Option func(*Client)

// WithFetcher sets the HTTP transport.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Client) {
		c.fetch = f
	}
}

// WithTokenTTL sets the requested token lifetime. Tokens are reused until a
// minute before they expire.
func WithTokenTTL(d time.Duration) Option {
	return func(c *Client) {
		c.tokenTTL = d
	}
}

// WithRetry sets the retry policy for token requests.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// Client talks to any number of ArcGIS Server sites and portals with one set
// of credentials. Safe for concurrent use.
type Client struct {
	fetch    fetcher.Fetcher
	creds    Credentials
	tokenTTL time.Duration
	retry    resilience.RetryConfig
	tokens   *expirable.LRU[string, string]
}

// NewClient creates a client.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:    creds,
		tokenTTL: time.Hour,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetch == nil {
		c.fetch = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}
	if c.tokenTTL < 2*time.Minute {
		c.tokenTTL = 2 * time.Minute
	}
	c.tokens = expirable.NewLRU[string, string](64, nil, c.tokenTTL-time.Minute)
	return c
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// Token returns a token for tokenURL, reusing a cached one while it is fresh.
func (c *Client) Token(ctx context.Context, tokenURL string) (string, error) {
	if tok, ok := c.tokens.Get(tokenURL); ok {
		return tok, nil
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger(tokenURL, "generateToken")
	tok, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		form := url.Values{
			"f":          {"json"},
			"username":   {c.creds.Username},
			"password":   {c.creds.Password},
			"client":     {"requestip"},
			"expiration": {fmt.Sprint(int(c.tokenTTL / time.Minute))},
		}
		body, err := c.fetch.PostForm(ctx, tokenURL, form)
		if err != nil {
			return "", err
		}
		var resp tokenResponse
		if err := decode(body, &resp); err != nil {
			return "", err
		}
		if resp.Token == "" {
			return "", eris.New("token not found in response")
		}
		return resp.Token, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "arcgis: generate token")
	}

	c.tokens.Add(tokenURL, tok)
	return tok, nil
}

// call performs an authenticated request and returns the raw body. A
// rejected token is dropped from the cache and the call is made once more
// with a fresh one.
func (c *Client) call(ctx context.Context, tokenURL string, do func(token string) (io.ReadCloser, error)) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		tok, err := c.Token(ctx, tokenURL)
		if err != nil {
			return nil, err
		}
		body, err := do(tok)
		if err != nil {
			return nil, err
		}
		data, err := readBody(body)
		if err != nil {
			return nil, err
		}
		if apiErr := errorBody(data); apiErr != nil {
			if apiErr.tokenRejected() && attempt == 0 {
				c.tokens.Remove(tokenURL)
				continue
			}
			return nil, apiErr
		}
		return data, nil
	}
}

func (c *Client) get(ctx context.Context, tokenURL, endpoint string, params url.Values) ([]byte, error) {
	return c.call(ctx, tokenURL, func(token string) (io.ReadCloser, error) {
		q := cloneValues(params)
		q.Set("token", token)
		return c.fetch.Get(ctx, endpoint+"?"+q.Encode())
	})
}

func (c *Client) post(ctx context.Context, tokenURL, endpoint string, form url.Values) ([]byte, error) {
	return c.call(ctx, tokenURL, func(token string) (io.ReadCloser, error) {
		f := cloneValues(form)
		f.Set("token", token)
		return c.fetch.PostForm(ctx, endpoint, f)
	})
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func readBody(body io.ReadCloser) ([]byte, error) {
	defer body.Close() //nolint:errcheck
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "arcgis: read body")
	}
	return data, nil
}

// errorBody returns the ArcGIS error carried by a JSON payload, if any.
// Non-JSON payloads (manifest.xml, metadata) never carry one.
func errorBody(data []byte) *Error {
	if !gjson.ValidBytes(data) {
		return nil
	}
	res := gjson.GetBytes(data, "error")
	if !res.IsObject() {
		return nil
	}
	var e Error
	if err := json.Unmarshal([]byte(res.Raw), &e); err != nil {
		return &Error{Message: res.Raw}
	}
	return &e
}

func decode(body io.ReadCloser, v any) error {
	data, err := readBody(body)
	if err != nil {
		return err
	}
	if apiErr := errorBody(data); apiErr != nil {
		return apiErr
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrap(err, "arcgis: decode response")
	}
	return nil
}

// jsonParams is the base query for every JSON endpoint.
func jsonParams() url.Values {
	return url.Values{"f": {"json"}}
}
