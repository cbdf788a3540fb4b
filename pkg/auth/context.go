package auth

import (
	"context"
	"errors"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type ctxKey int

const authInfoKey ctxKey = iota

var ErrAuthRequired = errors.New("authentication required")

// --- Context get/set ---

func WithAuthInfo(ctx context.Context, info *types.AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

func AuthInfoFromContext(ctx context.Context) *types.AuthInfo {
	info, _ := ctx.Value(authInfoKey).(*types.AuthInfo)
	return info
}

// --- Authorization checks ---

func RequireAuth(ctx context.Context) error {
	if i := AuthInfoFromContext(ctx); i == nil || i.User == nil {
		return ErrAuthRequired
	}
	return nil
}

// --- Field accessors ---

func UserId(ctx context.Context) uint {
	if i := AuthInfoFromContext(ctx); i != nil && i.User != nil {
		return i.User.Id
	}
	return 0
}

func UserEmail(ctx context.Context) string {
	if i := AuthInfoFromContext(ctx); i != nil && i.User != nil {
		return i.User.Email
	}
	return ""
}
