package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sw360-console/trace"
)

func TestNewRequestJoinsPathAndQuery(t *testing.T) {
	c := NewBaseClient("http://sw360.local/resource/api/", Config{})

	req, err := c.NewRequest(context.Background(), http.MethodGet, "components", url.Values{"page": {"0"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://sw360.local/resource/api/components?page=0", req.URL.String())
}

func TestNewRequestRejectsInlineQuery(t *testing.T) {
	c := NewBaseClient("http://sw360.local", Config{})

	_, err := c.NewRequest(context.Background(), http.MethodGet, "components?page=1", nil, nil)
	assert.Error(t, err)
}

func TestRoundTripperPropagatesTraceHeaders(t *testing.T) {
	var gotRequestID, gotSpan string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(trace.HeaderRequestID)
		gotSpan = r.Header.Get(trace.HeaderSpanID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL, Config{})
	ctx := trace.WithRequest(context.Background(), "abc")

	for i := 0; i < 2; i++ {
		req, err := c.NewRequest(ctx, http.MethodGet, "/health", nil, nil)
		require.NoError(t, err)
		resp, err := c.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, "abc", gotRequestID)
	assert.Equal(t, "2", gotSpan)
}

func TestSetAuthorizationSkipsBlank(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	SetAuthorization(req, "  ")
	assert.Empty(t, req.Header.Get("Authorization"))

	SetAuthorization(req, "Bearer t")
	assert.Equal(t, "Bearer t", req.Header.Get("Authorization"))
}

func TestRedactingClientKeepsCredentialsOutOfLogs(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Encode()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	form := url.Values{"grant_type": {"password"}, "username": {"admin"}, "password": {"s3cret"}}
	newReq := func(c *BaseClient) *http.Request {
		req, err := c.NewRequest(context.Background(), http.MethodPost, "/oauth/token",
			url.Values{"client_secret": {"shh"}}, strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}

	plain := NewBaseClient(srv.URL+"/sso", Config{})
	fields := plain.HTTPClient.Transport.(*loggingRoundTripper).describe(newReq(plain))
	assert.Contains(t, fields["body"], "s3cret")

	redacting := NewBaseClient(srv.URL+"/sso", Config{Redact: true})
	rt := redacting.HTTPClient.Transport.(*loggingRoundTripper)
	req := newReq(redacting)
	fields = rt.describe(req)
	assert.NotContains(t, fields, "body")
	assert.Equal(t, srv.URL+"/sso/oauth/token", fields["url"])

	resp, err := redacting.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, form.Encode(), gotBody)
}
