package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sw360-console/config"
	"sw360-console/session"
)

const defaultIssuer = "sw360-console"

// JWTManager 는 세션 쿠키에 담을 JWT 를 HS256 단일 시크릿으로 발급/검증한다.
// 토큰에는 세션 ID 만 들어가며, SW360 access token 은 서버 쪽 세션 저장소에만 남는다.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret, issuer string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if issuer == "" {
		issuer = defaultIssuer
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// NewJWTManagerFromConfig 는 session 설정으로 JWTManager 를 만든다.
// 시크릿이 비어 있으면 임의의 값을 생성하므로 재시작하면 모든 세션이 로그아웃된다.
func NewJWTManagerFromConfig(cfg config.SessionConfig) (*JWTManager, bool, error) {
	secret := cfg.Secret
	generated := false
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, false, fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		generated = true
	}
	m, err := NewJWTManager(secret, defaultIssuer, cfg.TTL)
	return m, generated, err
}

func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Sign 은 세션 ID 를 sub 로 담은 토큰을 발급한다. expiresAt 이 비어 있으면 ttl 을 사용한다.
func (m *JWTManager) Sign(id session.ID, expiresAt time.Time) (string, error) {
	now := m.now()
	if expiresAt.IsZero() || expiresAt.After(now.Add(m.ttl)) {
		expiresAt = now.Add(m.ttl)
	}
	claims := jwt.MapClaims{
		"sub": string(id),
		"iss": m.issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) Parse(tokenString string) (session.ID, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token missing sub claim")
	}

	return session.ID(sub), nil
}
