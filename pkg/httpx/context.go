package httpx

import (
	"context"

	"github.com/stardiary/stardiary/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubjectID ctxKey = "subject_id"
	CtxKeyRole      ctxKey = "role"
	CtxKeyChildID   ctxKey = "child_id"
	CtxKeyStaff     ctxKey = "is_staff"
	CtxKeyClaims    ctxKey = "claims"
)

// SubjectIDFromCtx returns the authenticated subject id, or "" when the
// request did not pass through AuthnMiddleware.
func SubjectIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySubjectID).(string); ok {
		return v
	}
	return ""
}

// RoleFromCtx returns the authenticated role, or "".
func RoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}

// ChildIDFromCtx returns the child id on child-session requests, or "".
func ChildIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyChildID).(string); ok {
		return v
	}
	return ""
}

// StaffFromCtx reports whether the request carries a staff token.
func StaffFromCtx(ctx context.Context) bool {
	v, ok := ctx.Value(CtxKeyStaff).(bool)
	return ok && v
}

// ClaimsFromCtx returns the full verified claims, if present.
func ClaimsFromCtx(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}
