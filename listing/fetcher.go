package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sw360-console/httpclient"
	"sw360-console/session"
)

// ErrUnauthenticated is returned by fetchers when the backend rejects the
// credential. The controller turns it into a sign-out, never a message.
var ErrUnauthenticated = errors.New("backend rejected the credential")

// BackendError is a non-success answer from the backend.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// DecodeError reads the backend's error envelope from resp. Without a usable
// message the status text is used.
func DecodeError(resp *http.Response) *BackendError {
	be := &BackendError{Status: resp.StatusCode}
	snippet := httpclient.ReadSnippet(resp.Body)

	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(snippet), &envelope); err == nil {
		be.Message = strings.TrimSpace(envelope.Message)
		if be.Message == "" {
			be.Message = strings.TrimSpace(envelope.Error)
		}
	}
	if be.Message == "" {
		be.Message = http.StatusText(resp.StatusCode)
	}
	return be
}

type Request struct {
	Params     url.Values
	Credential session.Credential
}

type Fetcher[T any] interface {
	Fetch(ctx context.Context, req Request) (Page[T], error)
}

type FetcherFunc[T any] func(ctx context.Context, req Request) (Page[T], error)

func (f FetcherFunc[T]) Fetch(ctx context.Context, req Request) (Page[T], error) {
	return f(ctx, req)
}

// HTTPFetcher reads one paginated collection from the backend.
type HTTPFetcher[T any] struct {
	Client *httpclient.BaseClient
	// Path is relative to the client's base URL, e.g. "components".
	Path string
	// EmbeddedKey names the array inside "_embedded", e.g. "sw360:components".
	EmbeddedKey string
}

type envelope struct {
	Page     *PaginationMeta            `json:"page"`
	Embedded map[string]json.RawMessage `json:"_embedded"`
}

func (f *HTTPFetcher[T]) Fetch(ctx context.Context, req Request) (Page[T], error) {
	httpReq, err := f.Client.NewRequest(ctx, http.MethodGet, f.Path, req.Params, nil)
	if err != nil {
		return Page[T]{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/hal+json, application/json")
	httpclient.SetAuthorization(httpReq, req.Credential.Header())

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page[T]{}, ctxErr
		}
		return Page[T]{}, fmt.Errorf("request %s: %w", f.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Page[T]{}, ErrUnauthenticated
	case resp.StatusCode == http.StatusNoContent:
		return Page[T]{Rows: []T{}}, nil
	case resp.StatusCode != http.StatusOK:
		return Page[T]{}, DecodeError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page[T]{}, ctxErr
		}
		return Page[T]{}, fmt.Errorf("decode %s: %w", f.Path, err)
	}

	rows := []T{}
	if raw, ok := env.Embedded[f.EmbeddedKey]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return Page[T]{}, fmt.Errorf("decode %s rows: %w", f.EmbeddedKey, err)
		}
	}

	meta := metaFromRows(len(rows))
	if env.Page != nil {
		meta = *env.Page
	}
	return Page[T]{Rows: rows, Meta: meta}, nil
}
