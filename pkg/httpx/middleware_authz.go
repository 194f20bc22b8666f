package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole the caller's token must carry one of the listed roles.
// Must run after AuthnMiddleware.
func RequireAnyRole(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, role := range required {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[RoleFromCtx(r.Context())]; !ok {
				writeBearerRoleError(w, required...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff the caller's token must carry the is_staff claim.
// Must run after AuthnMiddleware.
func RequireStaff() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !StaffFromCtx(r.Context()) {
				writeBearerRoleError(w, "staff")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for insufficient privileges.
func writeBearerRoleError(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_role"))
}
