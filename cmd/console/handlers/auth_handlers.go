package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/middleware"
	"sw360-console/cmd/console/services"
	"sw360-console/logger"
	"sw360-console/session"
	"sw360-console/sw360"
)

const defaultLanding = "/components"

var reasonMessages = map[string]string{
	string(session.ReasonSignedOut): "You have been signed out.",
	string(session.ReasonExpired):   "Your session has expired. Please sign in again.",
	string(session.ReasonRejected):  "Your credentials were rejected by SW360. Please sign in again.",
}

// SignInPageHandler 는 로그인 화면을 그린다.
func SignInPageHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := env.page(c, "Sign in", "")
		data["Next"] = safeReturn(c.Query("next"), defaultLanding)
		data["Info"] = reasonMessages[c.Query("reason")]
		c.HTML(http.StatusOK, "signin.html", data)
	}
}

type signInForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// SignInHandler 는 SW360 토큰을 발급받아 세션을 만들고 쿠키를 내려준다.
func SignInHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form signInForm
		if err := c.ShouldBind(&form); err != nil {
			renderSignInError(env, c, form, http.StatusBadRequest, "Invalid sign-in request.")
			return
		}

		res, err := env.Auth.SignIn(c.Request.Context(), form.Username, form.Password)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrMissingCredentials):
				renderSignInError(env, c, form, http.StatusBadRequest, "Please enter your username and password.")
			case errors.Is(err, sw360.ErrInvalidCredentials):
				renderSignInError(env, c, form, http.StatusUnauthorized, "Invalid username or password.")
			case errors.Is(err, sw360.ErrNoOAuthClient):
				renderSignInError(env, c, form, http.StatusUnauthorized, "No OAuth client is registered for this user.")
			default:
				logger.ErrorWithFields("sign-in failed", logger.Fields{
					"user":  form.Username,
					"error": err.Error(),
				})
				renderSignInError(env, c, form, http.StatusBadGateway, "SW360 could not be reached. Please try again later.")
			}
			return
		}

		env.Cookie.Set(c, res.Cookie, res.MaxAge)
		c.Redirect(http.StatusSeeOther, safeReturn(form.Next, defaultLanding))
	}
}

func renderSignInError(env *Env, c *gin.Context, form signInForm, status int, msg string) {
	data := env.page(c, "Sign in", "")
	data["Next"] = safeReturn(form.Next, defaultLanding)
	data["Username"] = form.Username
	data["Error"] = msg
	c.HTML(status, "signin.html", data)
}

// SignOutHandler 는 세션을 끝내고 로그인 화면으로 보낸다.
// 로그아웃 이벤트가 해당 세션의 목록 화면과 알림을 정리한다.
func SignOutHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		if entry, ok := middleware.CurrentEntry(c); ok {
			env.Auth.SignOut(c.Request.Context(), entry.ID)
		}
		env.Cookie.Clear(c)
		c.Redirect(http.StatusSeeOther, middleware.SignInPath+"?reason="+string(session.ReasonSignedOut))
	}
}

// NotificationDismissHandler 는 알림 하나를 닫고 원래 화면으로 돌아간다.
func NotificationDismissHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := middleware.CurrentEntry(c)
		back := safeReturn(c.PostForm("return"), defaultLanding)
		if !ok {
			c.Redirect(http.StatusSeeOther, back)
			return
		}
		var uri struct {
			ID string `uri:"id" binding:"required,uuid"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			env.renderError(c, http.StatusBadRequest, "Invalid notification.")
			return
		}
		env.Flash.Dismiss(string(entry.ID), uri.ID)
		c.Redirect(http.StatusSeeOther, back)
	}
}
