package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenValidator turns a raw bearer token into an AuthInfo
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.AuthInfo, error)
}

// Claims are the JWT claims issued by the auth collaborator. The subject is
// the stable external user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HS256 bearer tokens and resolves the persisted user.
// Users are created lazily on first sight of a valid token.
type JWTValidator struct {
	secret []byte
	users  repository.UserRepository
}

func NewJWTValidator(cfg types.AuthConfig, users repository.UserRepository) (*JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth jwt secret is required")
	}
	return &JWTValidator{secret: []byte(cfg.JWTSecret), users: users}, nil
}

func (v *JWTValidator) ValidateToken(ctx context.Context, token string) (*types.AuthInfo, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := v.users.GetOrCreateUser(ctx, claims.Subject, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	return &types.AuthInfo{User: user}, nil
}
