package handler

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// bearerToken extracts a bearer token from the Authorization header, or ""
// when absent or malformed. Used by the recovery flow, where the reset
// token arrives as a bearer instead of a session cookie.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
