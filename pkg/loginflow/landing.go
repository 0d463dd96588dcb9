package loginflow

import (
	"strings"

	"github.com/tendant/settle-idm/pkg/credential"
)

// LandingPath returns where an authenticated user goes by default
func LandingPath(role credential.Role) string {
	switch role {
	case credential.RoleAdmin:
		return "/admin/dashboard"
	case credential.RoleSeller:
		return "/seller/dashboard"
	default:
		return "/"
	}
}

// SafeNext reports whether next is a path on this site. Scheme-relative
// ("//host") and backslash forms are rejected.
func SafeNext(next string) bool {
	if next == "" || next[0] != '/' {
		return false
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(next, "\r\n\t")
}

// Redirect picks next when it is safe, the role landing otherwise
func Redirect(role credential.Role, next string) string {
	if SafeNext(next) {
		return next
	}
	return LandingPath(role)
}
