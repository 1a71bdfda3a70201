package sw360

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"sw360-console/httpclient"
	"sw360-console/listing"
	"sw360-console/session"
)

var (
	// ErrUnauthenticated is the same sentinel the list fetchers return.
	ErrUnauthenticated    = listing.ErrUnauthenticated
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoOAuthClient      = errors.New("no oauth client is registered for this user")
	ErrInvalidID          = errors.New("invalid resource id")
	ErrEmptyPatch         = errors.New("patch has no fields")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidID reports whether id can be used as a single path segment.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Client talks to the SW360 resource API and its authorization server.
type Client struct {
	api  *httpclient.BaseClient
	auth *httpclient.BaseClient
}

func NewClient(api, auth *httpclient.BaseClient) *Client {
	return &Client{api: api, auth: auth}
}

// GenerateToken exchanges a username and password for an access token. The
// user's first registered OAuth client is looked up with basic auth and then
// used for a password grant.
func (c *Client) GenerateToken(ctx context.Context, username, password string) (AuthToken, error) {
	req, err := c.auth.NewRequest(ctx, http.MethodGet, "client-management", nil, nil)
	if err != nil {
		return AuthToken{}, err
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")

	var clients []OAuthClient
	if err := do(c.auth, req, &clients); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return AuthToken{}, ErrInvalidCredentials
		}
		return AuthToken{}, fmt.Errorf("client lookup: %w", err)
	}
	if len(clients) == 0 {
		return AuthToken{}, ErrNoOAuthClient
	}
	client := clients[0]

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	req, err = c.auth.NewRequest(ctx, http.MethodPost, "oauth/token", nil, strings.NewReader(form.Encode()))
	if err != nil {
		return AuthToken{}, err
	}
	req.SetBasicAuth(client.ClientID, client.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token AuthToken
	if err := do(c.auth, req, &token); err != nil {
		var be *listing.BackendError
		if errors.Is(err, ErrUnauthenticated) || (errors.As(err, &be) && be.Status == http.StatusBadRequest) {
			return AuthToken{}, ErrInvalidCredentials
		}
		return AuthToken{}, fmt.Errorf("token request: %w", err)
	}
	if token.AccessToken == "" {
		return AuthToken{}, errors.New("token response carried no access token")
	}
	return token, nil
}

// Profile returns the user the credential belongs to.
func (c *Client) Profile(ctx context.Context, cred session.Credential) (Profile, error) {
	var p Profile
	err := c.call(ctx, cred, http.MethodGet, "users/profile", nil, &p)
	return p, err
}

// Get decodes the resource at path.
func Get[T any](ctx context.Context, c *Client, cred session.Credential, path string) (T, error) {
	var out T
	err := c.call(ctx, cred, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Component(ctx context.Context, cred session.Credential, id string) (Component, error) {
	if !ValidID(id) {
		return Component{}, ErrInvalidID
	}
	return Get[Component](ctx, c, cred, Components.Path+"/"+id)
}

// ComponentReleases returns every release of one component.
func (c *Client) ComponentReleases(ctx context.Context, cred session.Credential, id string) ([]Release, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	page, err := NewLister(c, ComponentReleases(id)).Fetch(ctx, listing.Request{Credential: cred})
	if err != nil {
		return nil, err
	}
	return page.Rows, nil
}

func (c *Client) Delete(ctx context.Context, cred session.Credential, path string) error {
	return c.call(ctx, cred, http.MethodDelete, path, nil, nil)
}

func (c *Client) DeleteComponent(ctx context.Context, cred session.Credential, id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	return c.Delete(ctx, cred, Components.Path+"/"+id)
}

// Patcher is a partial update that knows which fields it sets.
type Patcher interface {
	Fields() map[string]any
}

// Patch sends only the fields set on p. out may be nil.
func (c *Client) Patch(ctx context.Context, cred session.Credential, path string, p Patcher, out any) error {
	fields := p.Fields()
	if len(fields) == 0 {
		return ErrEmptyPatch
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return c.call(ctx, cred, http.MethodPatch, path, body, out)
}

func (c *Client) PatchComponent(ctx context.Context, cred session.Credential, id string, p *ComponentPatch) (Component, error) {
	if !ValidID(id) {
		return Component{}, ErrInvalidID
	}
	var out Component
	err := c.Patch(ctx, cred, Components.Path+"/"+id, p, &out)
	return out, err
}

func (c *Client) PatchProject(ctx context.Context, cred session.Credential, id string, p *ProjectPatch) (Project, error) {
	if !ValidID(id) {
		return Project{}, ErrInvalidID
	}
	var out Project
	err := c.Patch(ctx, cred, Projects.Path+"/"+id, p, &out)
	return out, err
}

// Ping checks that the resource API answers at all. Any status below 500
// counts, an unauthenticated root is normal.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.api.NewRequest(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend answered %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) call(ctx context.Context, cred session.Credential, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.api.NewRequest(ctx, method, path, nil, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	httpclient.SetAuthorization(req, cred.Header())
	return do(c.api, req, out)
}

func do(client *httpclient.BaseClient, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return listing.DecodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
