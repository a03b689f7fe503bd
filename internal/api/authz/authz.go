package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrUnverified      = errors.New("email not verified")
)

type AuthUser struct {
	ID         int64
	Email      string
	Username   string
	IsVerified bool
	IsAdmin    bool
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value
// has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// RequireVerified ensures the caller is authenticated with a verified email.
// Verified email gates the invitation endpoints and most of the API surface.
func RequireVerified(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsVerified {
		return nil, ErrUnverified
	}
	return user, nil
}

// RequireAdmin ensures the caller is an authenticated administrator.
func RequireAdmin(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}
