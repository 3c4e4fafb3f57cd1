package testutil

import (
	"context"
	"net/http"

	"arabesque/internal/platform/middleware"
)

// AsUser stamps the request context the way the auth middleware would for an
// authenticated caller.
func AsUser(req *http.Request, userID, role, name string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	ctx = context.WithValue(ctx, middleware.ContextKeyName, name)
	return req.WithContext(ctx)
}
