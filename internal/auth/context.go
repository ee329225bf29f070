package auth

import "context"

type ctxKey int

const (
	ctxKeySub ctxKey = iota
	ctxKeyRole
	ctxKeyOrg
)

func WithIdentity(ctx context.Context, sub, role, org string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySub, sub)
	ctx = context.WithValue(ctx, ctxKeyRole, role)
	return context.WithValue(ctx, ctxKeyOrg, org)
}

func SubjectFromContext(ctx context.Context) string { return strFromCtx(ctx, ctxKeySub) }
func RoleFromContext(ctx context.Context) string    { return strFromCtx(ctx, ctxKeyRole) }
func OrgFromContext(ctx context.Context) string     { return strFromCtx(ctx, ctxKeyOrg) }

func strFromCtx(ctx context.Context, k ctxKey) string {
	if v := ctx.Value(k); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
