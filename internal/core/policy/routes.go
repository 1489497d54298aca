// Package policy holds the static authorization configuration shared by the
// request gate and the client session store: route classification tables,
// the role to landing-path map, and the password policy.
package policy

import "strings"

// RouteClass partitions the URL space into three disjoint categories.
type RouteClass string

const (
	RoutePublic    RouteClass = "public"
	RouteProtected RouteClass = "protected"
	RouteDefault   RouteClass = "default"
)

// Redirect locations consumed by the gate and the session store.
const (
	LoginPath          = "/auth/login"
	RegisterPath       = "/auth/register"
	ForgotPasswordPath = "/auth/forgot-password"
	ResetPasswordPath  = "/auth/reset-password"
	VerifyEmailPath    = "/auth/verify-email"
	OAuthCallbackPath  = "/auth/callback"
	UnauthorizedPath   = "/unauthorized"
	DefaultDashboard   = "/dashboard"
)

// publicRoutes never require a session. Root is matched exactly, the rest by
// prefix. Checked before protectedRoutes and short-circuits.
var publicRoutes = []string{
	"/",
	LoginPath,
	RegisterPath,
	ForgotPasswordPath,
	ResetPasswordPath,
	VerifyEmailPath,
	OAuthCallbackPath,
}

// protectedRoutes require an authenticated, active profile. Prefix-matched.
var protectedRoutes = []string{
	"/dashboard",
	"/profile",
	"/settings",
	"/students",
	"/teachers",
	"/staff",
	"/classes",
	"/attendance",
	"/exams",
	"/fees",
	"/library",
	"/transport",
}

// IsPublic reports whether the path is in the public set.
func IsPublic(path string) bool {
	for _, route := range publicRoutes {
		if route == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// IsProtected reports whether the path is in the protected set.
func IsProtected(path string) bool {
	for _, route := range protectedRoutes {
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// Classify maps a request path to its route class. Public wins over
// protected when prefixes overlap.
func Classify(path string) RouteClass {
	if IsPublic(path) {
		return RoutePublic
	}
	if IsProtected(path) {
		return RouteProtected
	}
	return RouteDefault
}
