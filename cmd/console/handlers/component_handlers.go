package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/middleware"
	"sw360-console/cmd/console/services"
	"sw360-console/cmd/console/workspace"
	"sw360-console/sw360"
)

const componentsPath = "/components"

// ComponentDetailHandler 는 컴포넌트와 그 릴리스를 함께 보여준다.
func ComponentDetailHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := credential(c)
		if !ok {
			env.signOutRejected(c)
			return
		}
		id := c.Param("id")
		detail, err := env.Components.Detail(c.Request.Context(), cred, id)
		if err != nil {
			env.handleBackendError(c, err, componentsPath)
			return
		}

		data := env.page(c, detail.Component.Name, sw360.Components.Name)
		data["ID"] = id
		data["Component"] = detail.Component
		data["Vendor"] = detail.Component.VendorName()
		data["Releases"] = detail.Releases
		c.HTML(http.StatusOK, "detail.html", data)
	}
}

// ComponentEditPageHandler 는 편집 폼을 그린다.
func ComponentEditPageHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := credential(c)
		if !ok {
			env.signOutRejected(c)
			return
		}
		id := c.Param("id")
		component, err := env.Client.Component(c.Request.Context(), cred, id)
		if err != nil {
			env.handleBackendError(c, err, componentsPath)
			return
		}

		data := env.page(c, "Edit "+component.Name, sw360.Components.Name)
		data["ID"] = id
		data["Form"] = services.FormFromComponent(component)
		c.HTML(http.StatusOK, "edit.html", data)
	}
}

// ComponentEditHandler 는 바뀐 필드만 PATCH 로 보낸다.
func ComponentEditHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := credential(c)
		if !ok {
			env.signOutRejected(c)
			return
		}
		id := c.Param("id")
		detailPath := componentsPath + "/" + url.PathEscape(id)

		var form services.ComponentForm
		if err := c.ShouldBind(&form); err != nil {
			env.renderError(c, http.StatusBadRequest, "Invalid component form.")
			return
		}
		if form.Name == "" {
			data := env.page(c, "Edit component", sw360.Components.Name)
			data["ID"] = id
			data["Form"] = form
			data["Error"] = "Component name is required."
			c.HTML(http.StatusBadRequest, "edit.html", data)
			return
		}

		component, changed, err := env.Components.Update(c.Request.Context(), cred, id, form)
		if err != nil {
			env.handleBackendError(c, err, detailPath+"/edit")
			return
		}
		if changed {
			env.notifier(c).Success("Component " + component.Name + " updated.")
			env.reloadComponents(c)
		} else {
			env.notifier(c).Success("Nothing to update.")
		}
		c.Redirect(http.StatusSeeOther, detailPath)
	}
}

// ComponentDeleteHandler 는 컴포넌트를 삭제하고 목록으로 돌아간다.
func ComponentDeleteHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := credential(c)
		if !ok {
			env.signOutRejected(c)
			return
		}
		id := c.Param("id")
		if err := env.Components.Delete(c.Request.Context(), cred, id); err != nil {
			env.handleBackendError(c, err, componentsPath)
			return
		}
		env.notifier(c).Success("Component deleted.")
		c.Redirect(http.StatusSeeOther, env.reloadComponents(c))
	}
}

// reloadComponents 는 열려 있는 컴포넌트 목록을 다시 조회해 변경을 반영하고,
// 그 목록의 현재 URL 을 돌려준다.
func (e *Env) reloadComponents(c *gin.Context) string {
	entry, ok := middleware.CurrentEntry(c)
	if !ok {
		return componentsPath
	}
	screen, ok := e.Workspace.Lookup(workspace.Key{Session: entry.ID, Resource: sw360.Components.Name})
	if !ok || screen.Reload() != nil {
		return componentsPath
	}
	return componentsPath + "?" + screen.Location().Encode()
}
