package auth

import "context"

type userContextKey struct{}

type userInfo struct {
	id        string
	companyID string
}

// ContextWithUser attaches the authenticated user to the context.
func ContextWithUser(ctx context.Context, userID, companyID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userInfo{id: userID, companyID: companyID})
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(userInfo)
	if !ok || v.id == "" {
		return "", false
	}
	return v.id, true
}

// CompanyIDFromContext extracts the company scope of the session, if any.
func CompanyIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(userInfo)
	if !ok || v.companyID == "" {
		return "", false
	}
	return v.companyID, true
}
