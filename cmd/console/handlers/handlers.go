package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/auth"
	"sw360-console/cmd/console/middleware"
	"sw360-console/cmd/console/services"
	"sw360-console/cmd/console/workspace"
	"sw360-console/config"
	"sw360-console/listing"
	"sw360-console/logger"
	"sw360-console/notify"
	"sw360-console/session"
	"sw360-console/sw360"
)

// Env 는 핸들러가 공유하는 의존성을 묶는다.
type Env struct {
	Client     *sw360.Client
	Sessions   *session.Manager
	Auth       *services.AuthService
	Components *services.ComponentService
	Workspace  *workspace.Workspace
	Flash      *notify.Flash
	Cookie     auth.Cookie
	Listing    config.ListingConfig
	Backend    config.BackendConfig
	Resources  []Resource
}

// Resource 는 이름으로 리소스를 찾는다.
func (e *Env) Resource(name string) (Resource, bool) {
	for _, r := range e.Resources {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

type navItem struct {
	Title  string
	Href   string
	Active bool
}

type notification struct {
	ID    string
	Level notify.Level
	Text  string
}

// page 는 레이아웃이 필요로 하는 공통 데이터를 채운다.
func (e *Env) page(c *gin.Context, title, active string) gin.H {
	data := gin.H{
		"Title":     title,
		"ReturnTo":  c.Request.URL.RequestURI(),
		"Resources": e.nav(active),
	}
	if entry, ok := middleware.CurrentEntry(c); ok {
		data["User"] = entry.User
		msgs := e.Flash.Peek(string(entry.ID))
		notes := make([]notification, 0, len(msgs))
		for _, m := range msgs {
			notes = append(notes, notification{ID: m.ID, Level: m.Level, Text: m.Text})
		}
		data["Notifications"] = notes
	}
	return data
}

func (e *Env) nav(active string) []navItem {
	items := make([]navItem, 0, len(e.Resources))
	for _, r := range e.Resources {
		items = append(items, navItem{Title: r.Title(), Href: "/" + r.Name(), Active: r.Name() == active})
	}
	return items
}

func (e *Env) notifier(c *gin.Context) notify.Notifier {
	entry, ok := middleware.CurrentEntry(c)
	if !ok {
		return notify.Discard
	}
	return e.Flash.For(string(entry.ID))
}

func (e *Env) renderError(c *gin.Context, status int, message string) {
	data := e.page(c, http.StatusText(status), "")
	data["Message"] = message
	c.HTML(status, "error.html", data)
}

// handleBackendError 는 SW360 호출 실패를 화면 응답으로 바꾼다.
// 401 은 세션을 끊고 로그인 화면으로, 404/400 은 오류 화면으로, 나머지는 알림으로 보여준다.
func (e *Env) handleBackendError(c *gin.Context, err error, back string) {
	var be *listing.BackendError
	switch {
	case errors.Is(err, sw360.ErrUnauthenticated):
		e.signOutRejected(c)
	case errors.Is(err, sw360.ErrNotFound):
		e.renderError(c, http.StatusNotFound, "The requested item does not exist.")
	case errors.Is(err, sw360.ErrInvalidID):
		e.renderError(c, http.StatusBadRequest, "The requested id is not valid.")
	case errors.As(err, &be):
		e.notifier(c).Error(be.Message)
		c.Redirect(http.StatusSeeOther, back)
	default:
		logger.ErrorWithFields("backend call failed", logger.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		e.notifier(c).Error(listing.GenericErrorMessage)
		c.Redirect(http.StatusSeeOther, back)
	}
}

func (e *Env) signOutRejected(c *gin.Context) {
	if entry, ok := middleware.CurrentEntry(c); ok {
		e.Sessions.SignOut(c.Request.Context(), entry.ID, session.ReasonRejected)
	}
	e.Cookie.Clear(c)
	c.Redirect(http.StatusSeeOther, middleware.SignInPath+"?reason="+string(session.ReasonRejected))
}

func credential(c *gin.Context) (session.Credential, bool) {
	entry, ok := middleware.CurrentEntry(c)
	return entry.Credential, ok && !entry.Credential.IsZero()
}

// safeReturn 는 같은 사이트 안의 상대 경로만 허용한다.
func safeReturn(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	return target
}
