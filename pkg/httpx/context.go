package httpx

import (
	"context"
	"time"
)

type ctxKey string

const (
	// CtxKeyUserID carries the authenticated user's ID.
	CtxKeyUserID ctxKey = "user_id"
	// CtxKeyAccessToken carries the raw presented access token, kept around
	// so a later logout can denylist it.
	CtxKeyAccessToken ctxKey = "access_token"
	// CtxKeyAccessTokenExpiry carries the token's own expiry instant.
	CtxKeyAccessTokenExpiry ctxKey = "access_token_expiry"
)

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok && v != ""
}

// AccessTokenFromContext returns the raw access token and its expiry.
func AccessTokenFromContext(ctx context.Context) (token string, expiry time.Time, ok bool) {
	token, tok := ctx.Value(CtxKeyAccessToken).(string)
	expiry, eok := ctx.Value(CtxKeyAccessTokenExpiry).(time.Time)
	return token, expiry, tok && eok && token != ""
}

// ContextWithAuth attaches the authenticated identity and presented token to ctx.
func ContextWithAuth(ctx context.Context, userID, token string, expiry time.Time) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyAccessToken, token)
	ctx = context.WithValue(ctx, CtxKeyAccessTokenExpiry, expiry)
	return ctx
}
