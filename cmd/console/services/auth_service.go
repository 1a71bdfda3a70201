package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sw360-console/cmd/console/auth"
	"sw360-console/logger"
	"sw360-console/session"
	"sw360-console/sw360"
)

var ErrMissingCredentials = errors.New("username and password are required")

// Authenticator is the part of the SW360 client sign-in needs.
type Authenticator interface {
	GenerateToken(ctx context.Context, username, password string) (sw360.AuthToken, error)
	Profile(ctx context.Context, cred session.Credential) (sw360.Profile, error)
}

type AuthService struct {
	client   Authenticator
	sessions *session.Manager
	tokens   *auth.JWTManager
	now      func() time.Time
}

func NewAuthService(client Authenticator, sessions *session.Manager, tokens *auth.JWTManager) *AuthService {
	return &AuthService{client: client, sessions: sessions, tokens: tokens, now: time.Now}
}

// SignInResult carries the new session and the signed cookie value for it.
type SignInResult struct {
	Entry  session.Entry
	Cookie string
	MaxAge int
}

// SignIn exchanges the user's password for an SW360 token and opens a
// session around it. The session stays pending until the exchange finishes.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return SignInResult{}, ErrMissingCredentials
	}

	entry, err := s.sessions.Begin(ctx, session.User{Email: username})
	if err != nil {
		return SignInResult{}, err
	}

	id := entry.ID

	token, err := s.client.GenerateToken(ctx, username, password)
	if err != nil {
		s.fail(ctx, id)
		return SignInResult{}, err
	}
	cred := token.Credential(s.now())

	user := session.User{Email: username, Group: session.GroupUser}
	if profile, err := s.client.Profile(ctx, cred); err != nil {
		logger.WarnWithFields("profile lookup failed, using defaults", logger.Fields{
			"user":  username,
			"error": err.Error(),
		})
	} else {
		user = profile.User()
		if user.Email == "" {
			user.Email = username
		}
	}

	entry, err = s.sessions.Complete(ctx, id, user, cred)
	if err != nil {
		s.fail(ctx, id)
		return SignInResult{}, err
	}

	cookie, err := s.tokens.Sign(entry.ID, entry.ExpiresAt)
	if err != nil {
		s.sessions.SignOut(ctx, entry.ID, session.ReasonSignedOut)
		return SignInResult{}, fmt.Errorf("jwt sign: %w", err)
	}

	maxAge := int(entry.ExpiresAt.Sub(s.now()).Seconds())
	if ttl := int(s.tokens.TTL().Seconds()); maxAge <= 0 || maxAge > ttl {
		maxAge = ttl
	}
	logger.InfoWithFields("signed in", logger.Fields{
		"session_id": string(entry.ID),
		"user":       user.Email,
		"group":      user.Group,
	})
	return SignInResult{Entry: entry, Cookie: cookie, MaxAge: maxAge}, nil
}

func (s *AuthService) SignOut(ctx context.Context, id session.ID) {
	s.sessions.SignOut(ctx, id, session.ReasonSignedOut)
}

func (s *AuthService) fail(ctx context.Context, id session.ID) {
	if err := s.sessions.Fail(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.ErrorWithFields("failed to drop pending session", logger.Fields{
			"session_id": string(id),
			"error":      err.Error(),
		})
	}
}
