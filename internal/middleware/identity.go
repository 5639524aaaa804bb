// Package middleware holds the echo middleware shared by all routes.
package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	CtxSubject = "subject"
	CtxRole    = "role"
)

// subject returns the authenticated operator name, or "anon".
func subject(c echo.Context) string {
	if s, ok := c.Get(CtxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}
