package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/auth"
	"sw360-console/logger"
	"sw360-console/session"
)

const (
	ctxKeyEntry = "session_entry"
	ctxKeyGuard = "session_guard"
)

// SignInPath 는 인증이 필요한 화면에서 세션이 없을 때 보내는 경로이다.
const SignInPath = "/signin"

// SessionGuard 는 세션 쿠키를 검증하고 세션 저장소에서 사용자를 찾아 컨텍스트에 넣는다.
//   - 쿠키가 없거나 서명이 틀리면 로그인 화면으로 보낸다.
//   - 토큰 교환이 아직 진행 중이면 로딩 화면을 보여준다.
//   - 세션이 만료되었으면 로그아웃 이벤트를 발행한 뒤 로그인 화면으로 보낸다.
func SessionGuard(cookie auth.Cookie, tokens *auth.JWTManager, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := cookie.Read(c)
		if err != nil {
			redirectToSignIn(c, "")
			return
		}
		id, err := tokens.Parse(raw)
		if err != nil {
			logger.DebugWithFields("session cookie rejected", logger.Fields{"error": err.Error()})
			cookie.Clear(c)
			redirectToSignIn(c, "")
			return
		}

		entry, status := sessions.Lookup(c.Request.Context(), id)
		switch status {
		case session.StatusLoading:
			c.Header("Refresh", "1")
			c.HTML(http.StatusAccepted, "loading.html", gin.H{"Title": "Signing in"})
			c.Abort()
			return
		case session.StatusUnauthenticated:
			reason := ""
			if entry.ID != "" {
				sessions.SignOut(c.Request.Context(), id, session.ReasonExpired)
				reason = string(session.ReasonExpired)
			}
			cookie.Clear(c)
			redirectToSignIn(c, reason)
			return
		}

		c.Set(ctxKeyEntry, entry)
		c.Set(ctxKeyGuard, sessions.Guard(id))
		c.Next()
	}
}

// RequireUnrestricted 는 보안 사용자 그룹처럼 제한된 사용자의 변경 요청을 막는다.
func RequireUnrestricted() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := CurrentEntry(c)
		if !ok || entry.User.IsRestricted() {
			logger.InfoWithFields("access denied", logger.Fields{
				"path":  c.Request.URL.Path,
				"group": entry.User.Group,
			})
			c.HTML(http.StatusForbidden, "error.html", gin.H{
				"Title":   "Forbidden",
				"Message": "Your user group is not allowed to change this data.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentEntry 는 SessionGuard 가 넣어 둔 세션을 돌려준다.
func CurrentEntry(c *gin.Context) (session.Entry, bool) {
	v, ok := c.Get(ctxKeyEntry)
	if !ok {
		return session.Entry{}, false
	}
	entry, ok := v.(session.Entry)
	return entry, ok
}

func CurrentGuard(c *gin.Context) session.Guard {
	if v, ok := c.Get(ctxKeyGuard); ok {
		if g, ok := v.(session.Guard); ok {
			return g
		}
	}
	return session.NewStatic(session.Credential{}, session.StatusUnauthenticated)
}

func redirectToSignIn(c *gin.Context, reason string) {
	q := url.Values{}
	if c.Request.Method == http.MethodGet {
		q.Set("next", c.Request.URL.RequestURI())
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	target := SignInPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}
