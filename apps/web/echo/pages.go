package echoweb

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/dashboard"
	"github.com/trezcool/mergington/core/view"
)

type pages struct {
	ctrl    Controller
	appName string
}

func registerPages(app *echo.Echo, ctrl Controller, appName string) {
	p := pages{ctrl: ctrl, appName: appName}

	app.GET("/", p.listing(view.LayoutDashboard))
	app.GET("/activities", p.listing(view.LayoutList))
	app.GET("/home", p.listing(view.LayoutHome))
	app.GET("/activity", p.detail)

	// forms redirect back to the page they were posted from
	app.POST("/signup", p.signup)
	app.POST("/unregister", p.unregister)
	app.POST("/login", p.login)
	app.POST("/logout", p.logout)
	app.POST("/refresh", p.refresh)
}

func (p pages) render(ctx echo.Context, code int, layout view.Layout) error {
	var buf bytes.Buffer
	err := p.ctrl.View(ctx.Request().Context(), layout, func(doc *view.Document) error {
		return doc.RenderHTML(&buf, p.appName)
	})
	if err != nil {
		return errors.Wrapf(err, "rendering %s", layout)
	}
	return ctx.HTMLBlob(code, buf.Bytes())
}

func (p pages) listing(layout view.Layout) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var params filterParams
		if err := ctx.Bind(&params); err != nil {
			return err
		}
		filter, err := params.FilterSort()
		if err != nil {
			return err
		}
		if err = p.ctrl.Do(ctx.Request().Context(), dashboard.Event{Kind: dashboard.EventFilter, Filter: filter}); err != nil {
			return errors.Wrap(err, "applying filter")
		}
		return p.render(ctx, http.StatusOK, layout)
	}
}

func (p pages) detail(ctx echo.Context) error {
	name := strings.TrimSpace(ctx.QueryParam("name"))
	if name == "" {
		return errHttpNotFound
	}

	code := http.StatusOK
	err := p.ctrl.Do(ctx.Request().Context(), dashboard.Event{Kind: dashboard.EventFocus, Activity: name})
	var nf *dashboard.NotFoundError
	switch {
	case errors.As(err, &nf):
		code = http.StatusNotFound
	case err != nil && !displayed(ctx):
		return errors.Wrap(err, "focusing activity")
	}
	return p.render(ctx, code, view.LayoutDetail)
}

// submit hands ev to the controller then redirects back. Failures are shown on the page, not in the response.
func (p pages) submit(ctx echo.Context, ev dashboard.Event) error {
	if err := p.ctrl.Do(ctx.Request().Context(), ev); err != nil && !displayed(ctx) {
		return errors.Wrapf(err, "handling %s", ev.Kind)
	}
	return ctx.Redirect(http.StatusSeeOther, backTo(ctx))
}

// displayed reports whether the controller has shown the failure to the user; only an abandoned request leaves nothing on the page.
func displayed(ctx echo.Context) bool {
	return ctx.Request().Context().Err() == nil
}

func (p pages) signup(ctx echo.Context) error {
	var params rosterParams
	if err := ctx.Bind(&params); err != nil {
		return err
	}
	return p.submit(ctx, dashboard.Event{Kind: dashboard.EventSignup, Activity: params.Activity, Email: params.Email, FromCard: true})
}

func (p pages) unregister(ctx echo.Context) error {
	var params rosterParams
	if err := ctx.Bind(&params); err != nil {
		return err
	}
	return p.submit(ctx, dashboard.Event{Kind: dashboard.EventUnregister, Activity: params.Activity, Email: params.Email, FromCard: true})
}

func (p pages) login(ctx echo.Context) error {
	var params loginParams
	if err := ctx.Bind(&params); err != nil {
		return err
	}
	return p.submit(ctx, dashboard.Event{Kind: dashboard.EventLogin, Email: params.Email, Password: params.Password})
}

func (p pages) logout(ctx echo.Context) error {
	return p.submit(ctx, dashboard.Event{Kind: dashboard.EventLogout})
}

func (p pages) refresh(ctx echo.Context) error {
	return p.submit(ctx, dashboard.Event{Kind: dashboard.EventRefresh})
}
