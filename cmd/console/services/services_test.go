package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sw360-console/cmd/console/auth"
	"sw360-console/session"
	"sw360-console/sw360"
)

type fakeAuthenticator struct {
	token      sw360.AuthToken
	tokenErr   error
	profile    sw360.Profile
	profileErr error
}

func (f *fakeAuthenticator) GenerateToken(context.Context, string, string) (sw360.AuthToken, error) {
	return f.token, f.tokenErr
}

func (f *fakeAuthenticator) Profile(context.Context, session.Credential) (sw360.Profile, error) {
	return f.profile, f.profileErr
}

func newAuthService(t *testing.T, a Authenticator) (*AuthService, *session.Manager, *auth.JWTManager) {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	tokens, err := auth.NewJWTManager("secret", "", time.Hour)
	require.NoError(t, err)
	return NewAuthService(a, sessions, tokens), sessions, tokens
}

func TestSignInOpensSession(t *testing.T) {
	fake := &fakeAuthenticator{
		token:   sw360.AuthToken{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 1800},
		profile: sw360.Profile{Email: "admin@sw360.org", FullName: "Admin", UserGroup: session.GroupAdmin},
	}
	svc, sessions, tokens := newAuthService(t, fake)
	ctx := context.Background()

	res, err := svc.SignIn(ctx, " admin@sw360.org ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Admin", res.Entry.User.Name)
	assert.True(t, res.Entry.User.IsAdmin())
	assert.InDelta(t, 1800, res.MaxAge, 2)

	id, err := tokens.Parse(res.Cookie)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.ID, id)

	cred, status := sessions.Resolve(ctx, id)
	assert.Equal(t, session.StatusAuthenticated, status)
	assert.Equal(t, "tok", cred.AccessToken)
}

func TestSignInFallsBackWhenProfileFails(t *testing.T) {
	fake := &fakeAuthenticator{
		token:      sw360.AuthToken{AccessToken: "tok"},
		profileErr: errors.New("profile down"),
	}
	svc, _, _ := newAuthService(t, fake)

	res, err := svc.SignIn(context.Background(), "user@sw360.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user@sw360.org", res.Entry.User.Email)
	assert.Equal(t, session.GroupUser, res.Entry.User.Group)
	assert.InDelta(t, 3600, res.MaxAge, 2)
}

func TestSignInRejectedDropsPendingSession(t *testing.T) {
	fake := &fakeAuthenticator{tokenErr: sw360.ErrInvalidCredentials}
	svc, sessions, _ := newAuthService(t, fake)

	var events []session.Event
	sessions.Events().Subscribe(func(ev session.Event) { events = append(events, ev) })

	_, err := svc.SignIn(context.Background(), "user", "wrong")
	assert.ErrorIs(t, err, sw360.ErrInvalidCredentials)
	assert.Empty(t, events)

	_, err = svc.SignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSignOutPublishesEvent(t *testing.T) {
	fake := &fakeAuthenticator{token: sw360.AuthToken{AccessToken: "tok"}}
	svc, sessions, _ := newAuthService(t, fake)
	ctx := context.Background()

	res, err := svc.SignIn(ctx, "user", "pw")
	require.NoError(t, err)

	var events []session.Event
	sessions.Events().Subscribe(func(ev session.Event) { events = append(events, ev) })
	svc.SignOut(ctx, res.Entry.ID)

	require.Len(t, events, 1)
	assert.Equal(t, session.ReasonSignedOut, events[0].Reason)
	_, status := sessions.Resolve(ctx, res.Entry.ID)
	assert.Equal(t, session.StatusUnauthenticated, status)
}

type fakeComponents struct {
	mu         sync.Mutex
	component  sw360.Component
	releases   []sw360.Release
	releaseErr error
	patches    []map[string]any
	deleted    []string
}

func (f *fakeComponents) Component(context.Context, session.Credential, string) (sw360.Component, error) {
	return f.component, nil
}

func (f *fakeComponents) ComponentReleases(context.Context, session.Credential, string) ([]sw360.Release, error) {
	return f.releases, f.releaseErr
}

func (f *fakeComponents) PatchComponent(_ context.Context, _ session.Credential, _ string, p *sw360.ComponentPatch) (sw360.Component, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p.Fields())
	return f.component, nil
}

func (f *fakeComponents) DeleteComponent(_ context.Context, _ session.Credential, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestComponentDetailLoadsReleases(t *testing.T) {
	fake := &fakeComponents{
		component: sw360.Component{ID: "c1", Name: "zlib"},
		releases:  []sw360.Release{{ID: "r1", Name: "zlib", Version: "1.3"}},
	}
	svc := NewComponentService(fake)

	detail, err := svc.Detail(context.Background(), session.Credential{}, "c1")
	require.NoError(t, err)
	assert.Equal(t, "zlib", detail.Component.Name)
	require.Len(t, detail.Releases, 1)
	assert.Equal(t, "1.3", detail.Releases[0].Version)

	fake.releases = nil
	detail, err = svc.Detail(context.Background(), session.Credential{}, "c1")
	require.NoError(t, err)
	assert.NotNil(t, detail.Releases)

	fake.releaseErr = sw360.ErrUnauthenticated
	_, err = svc.Detail(context.Background(), session.Credential{}, "c1")
	assert.ErrorIs(t, err, sw360.ErrUnauthenticated)
}

func TestComponentUpdateSendsOnlyChanges(t *testing.T) {
	fake := &fakeComponents{component: sw360.Component{
		ID:         "c1",
		Name:       "zlib",
		Homepage:   "https://zlib.net",
		Categories: []string{"compression"},
	}}
	svc := NewComponentService(fake)

	form := FormFromComponent(fake.component)
	_, changed, err := svc.Update(context.Background(), session.Credential{}, "c1", form)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, fake.patches)

	form.Description = "  A compression library "
	form.Categories = "compression, library, compression"
	_, changed, err = svc.Update(context.Background(), session.Credential{}, "c1", form)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, fake.patches, 1)
	assert.Equal(t, map[string]any{
		"description": "A compression library",
		"categories":  []string{"compression", "library"},
	}, fake.patches[0])
}

func TestComponentDelete(t *testing.T) {
	fake := &fakeComponents{}
	svc := NewComponentService(fake)
	require.NoError(t, svc.Delete(context.Background(), session.Credential{}, "c9"))
	assert.Equal(t, []string{"c9"}, fake.deleted)
}
