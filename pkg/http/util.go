package http

import (
	"time"

	"github.com/labstack/echo/v4"

	xutil "GridAdvisor/pkg/util"
)

// QueryTime reads a time query parameter. An absent parameter yields def, an unparsable
// one a 400 ERR_VALIDATION error.
func QueryTime(c echo.Context, name string, def time.Time) (time.Time, *AppError) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	t, ok := xutil.ParseTime(s)
	if !ok {
		return time.Time{}, ValidationFailed(name, name+" must be RFC3339, '2006-01-02 15:04:05' or unix seconds")
	}
	return t, nil
}
