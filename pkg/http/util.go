package http

import (
	"strconv"
	"time"

	xutil "FlowTrader/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an integer query parameter, falling back to def when empty or invalid.
func QueryInt(c echo.Context, name string, def int) int {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// QueryTime reads a time query parameter (RFC3339 or unix seconds).
func QueryTime(c echo.Context, name string, def time.Time) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(name), def)
}
