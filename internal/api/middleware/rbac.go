package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edusuite/platform/internal/core/domain"
)

// RequireRoles enforces role-based access on routes behind the gate. Only
// the gate-set context value is consulted; raw request headers carry no
// authority here. The allowed set uses the same role enumeration as the
// client-side role checks.
func RequireRoles(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, _ := c.Get(ContextUserRole).(string)

			role, err := domain.ParseRole(raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
