package utils

import (
	"context"

	"github.com/aurafoods/aura_backend/appctx"
)

// Alias the shared context key type so call sites don't import appctx.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyEmail         = appctx.ContextKeyEmail
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyRole          = appctx.ContextKeyRole
	ContextKeyDealerId      = appctx.ContextKeyDealerId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyServiceCaller = appctx.ContextKeyServiceCaller
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetEmailFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEmail)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRole)
}

func GetDealerIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyDealerId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetServiceCallerFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyServiceCaller)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetEmailInContext(ctx context.Context, email string) context.Context {
	return appctx.Set(ctx, ContextKeyEmail, email)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyRole, role)
}

func SetDealerIdInContext(ctx context.Context, dealerId int) context.Context {
	return appctx.Set(ctx, ContextKeyDealerId, dealerId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetServiceCallerInContext(ctx context.Context, service bool) context.Context {
	return appctx.Set(ctx, ContextKeyServiceCaller, service)
}
