package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"sw360-console/logger"
	"sw360-console/trace"
)

const defaultTimeout = 10 * time.Second

// Config holds the shared settings of outbound clients.
type Config struct {
	Timeout time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Redact keeps request bodies and query strings out of the logs. Set it
	// on clients that carry passwords or client secrets.
	Redact bool
}

// loggingRoundTripper logs every outbound call and stamps it with the
// request/span ids of the inbound request it serves.
type loggingRoundTripper struct {
	inner  http.RoundTripper
	redact bool
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID, spanID := trace.NextSpanID(req.Context())
	req.Header.Set(trace.HeaderRequestID, requestID)
	req.Header.Set(trace.HeaderSpanID, spanID)

	fields := l.describe(req)
	fields["request_id"] = requestID
	fields["span_id"] = spanID

	resp, err := l.inner.RoundTrip(req)
	fields["duration"] = time.Since(start).String()
	if err != nil {
		fields["error"] = err.Error()
		// Cancellation is routine for superseded list fetches.
		if req.Context().Err() != nil {
			logger.DebugWithFields("httpclient request cancelled", fields)
		} else {
			logger.ErrorWithFields("httpclient request failed", fields)
		}
		return nil, err
	}

	fields["status"] = resp.StatusCode
	logger.DebugWithFields("httpclient request completed", fields)
	return resp, nil
}

// describe returns the log fields of req. The body is read and put back so
// the transport still sends it.
func (l *loggingRoundTripper) describe(req *http.Request) logger.Fields {
	logURL := *req.URL
	if l.redact {
		logURL.RawQuery = ""
	}
	fields := logger.Fields{
		"method": req.Method,
		"url":    logURL.Redacted(),
	}
	if l.redact || req.Body == nil {
		return fields
	}
	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return fields
	}
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	const maxBodyLog = 1024
	if len(bodyBytes) > maxBodyLog {
		bodyBytes = bodyBytes[:maxBodyLog]
	}
	if len(bodyBytes) > 0 {
		fields["body"] = string(bodyBytes)
	}
	return fields
}

// BaseClient binds an http.Client to a base URL.
type BaseClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewBaseClient builds a BaseClient with a logging http.Client.
func NewBaseClient(baseURL string, cfg Config) *BaseClient {
	return &BaseClient{
		HTTPClient: New(cfg),
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// NewBaseClientWithClient uses httpClient as is; nil selects the default client.
func NewBaseClientWithClient(httpClient *http.Client, baseURL string) *BaseClient {
	if httpClient == nil {
		httpClient = NewDefault()
	}
	return &BaseClient{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// NewRequest joins relPath onto the base URL and encodes query.
// relPath must not carry its own query string.
func (c *BaseClient) NewRequest(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.Contains(relPath, "?") {
		return nil, fmt.Errorf("httpclient: relPath must not contain a query string (use query instead): %s", relPath)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		base.Path = path.Join("/", base.Path, relPath)
	}
	if len(query) > 0 {
		base.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}

func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	return c.HTTPClient.Do(req)
}

// SetAuthorization sets the Authorization header unless value is blank.
func SetAuthorization(req *http.Request, value string) {
	if v := strings.TrimSpace(value); v != "" {
		req.Header.Set("Authorization", v)
	}
}

// ReadSnippet reads at most 2KiB of body for error messages.
func ReadSnippet(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(b))
}

// New returns a logging http.Client; a zero Timeout means 10s.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: transport, redact: cfg.Redact},
	}
}

func NewDefault() *http.Client {
	return New(Config{})
}
