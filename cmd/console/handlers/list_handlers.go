package handlers

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/middleware"
	"sw360-console/cmd/console/workspace"
	"sw360-console/listing"
	"sw360-console/logger"
	"sw360-console/session"
)

// ListHandler 는 리소스 목록 화면을 그린다.
// 화면 상태(페이지, 정렬, 진행 중인 조회)는 세션별 workspace 에 남아 요청 사이에 유지된다.
// URL 이 상태와 다르면 정규화된 URL 로 리다이렉트하고, 조회가 RenderWait 안에 끝나지 않으면
// 처리 중 표시와 함께 1초 뒤 새로고침하도록 응답한다.
func ListHandler(env *Env, res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := middleware.CurrentEntry(c)
		if !ok {
			c.Redirect(http.StatusSeeOther, middleware.SignInPath)
			return
		}
		values := c.Request.URL.Query()
		key := workspace.Key{Session: entry.ID, Resource: res.Name()}

		screen, created, err := env.Workspace.Open(key,
			func() workspace.Screen {
				return res.NewScreen(env.Client, env.Sessions.Guard(entry.ID), env.Flash.For(string(entry.ID)), env.Listing)
			},
			func(s workspace.Screen) error {
				_, err := s.Sync(values)
				return err
			},
		)
		if err != nil {
			logger.ErrorWithFields("failed to open list screen", logger.Fields{
				"resource": res.Name(),
				"error":    err.Error(),
			})
			env.renderError(c, http.StatusInternalServerError, listing.GenericErrorMessage)
			return
		}
		if !created {
			if _, err := screen.Sync(values); err != nil {
				if errors.Is(err, listing.ErrClosed) {
					c.Redirect(http.StatusSeeOther, middleware.SignInPath)
					return
				}
				env.renderError(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		if location := screen.Location(); !sameQuery(location, values) {
			c.Redirect(http.StatusSeeOther, "/"+res.Name()+"?"+location.Encode())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), env.Listing.RenderWait)
		defer cancel()
		_ = screen.Wait(ctx)

		snap, err := screen.Snapshot(entry.User, "/"+res.Name())
		if err != nil {
			logger.ErrorWithFields("failed to render list", logger.Fields{
				"resource": res.Name(),
				"error":    err.Error(),
			})
			env.renderError(c, http.StatusInternalServerError, listing.GenericErrorMessage)
			return
		}
		if snap.Outcome == listing.OutcomeUnauthenticated && !snap.Fetching {
			env.Cookie.Clear(c)
			c.Redirect(http.StatusSeeOther, middleware.SignInPath+"?reason="+string(session.ReasonRejected))
			return
		}
		if snap.Outcome == listing.OutcomeSuspended && !snap.Fetching {
			// 로그인 직후 세션이 아직 준비되지 않았던 경우 다시 조회한다.
			_ = screen.Reload()
			snap.Fetching = true
		}

		data := env.page(c, res.Title(), res.Name())
		data["Resource"] = res.Name()
		data["Total"] = snap.Total
		data["Loaded"] = snap.Loaded
		data["Fields"] = filterInputs(res.Fields(), snap.Filters)
		data["Table"] = snap.Table
		data["Refresh"] = snap.Fetching
		if snap.Fetching {
			c.Header("Refresh", "1")
		}
		c.HTML(http.StatusOK, "list.html", data)
	}
}

// RefreshListHandler 는 현재 화면 상태 그대로 다시 조회한다.
func RefreshListHandler(env *Env, res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := middleware.CurrentEntry(c)
		if !ok {
			c.Redirect(http.StatusSeeOther, middleware.SignInPath)
			return
		}
		target := "/" + res.Name()
		if screen, ok := env.Workspace.Lookup(workspace.Key{Session: entry.ID, Resource: res.Name()}); ok {
			if err := screen.Reload(); err == nil {
				target += "?" + screen.Location().Encode()
			}
		}
		c.Redirect(http.StatusSeeOther, target)
	}
}

type filterInput struct {
	Param string
	Label string
	Value string
}

func filterInputs(fields []FilterField, filters map[string]string) []filterInput {
	out := make([]filterInput, 0, len(fields))
	for _, f := range fields {
		out = append(out, filterInput{Param: f.Param, Label: f.Label, Value: filters[f.Param]})
	}
	return out
}

// sameQuery compares the keys of want against got, ignoring empty filter
// values in got.
func sameQuery(want, got url.Values) bool {
	trimmed := url.Values{}
	for k, vs := range got {
		if len(vs) == 0 || (vs[0] == "" && !want.Has(k)) {
			continue
		}
		trimmed[k] = vs[:1]
	}
	first := url.Values{}
	for k, vs := range want {
		first[k] = vs[:1]
	}
	return maps.EqualFunc(first, trimmed, func(a, b []string) bool { return a[0] == b[0] })
}
