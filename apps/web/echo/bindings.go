package echoweb

import (
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core/activity"
)

type filterParams struct {
	Search   string `query:"search"`
	Day      string `query:"day"`
	Category string `query:"category"`
	Sort     string `query:"sort"`
}

func (p filterParams) FilterSort() (activity.FilterSort, error) {
	return shared.ParseFilter(p.Search, p.Day, p.Category, p.Sort)
}

type rosterParams struct {
	Activity string `form:"activity"`
	Email    string `form:"email"`
}

type loginParams struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// backTo returns the local page a form was posted from, "/" if unknown.
func backTo(ctx echo.Context) string {
	ref, err := url.Parse(ctx.Request().Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	if ref.Host != "" && ref.Host != ctx.Request().Host {
		return "/"
	}
	return ref.RequestURI()
}
