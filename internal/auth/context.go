package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"secdash/internal/model"
)

// Keys used on the echo context.
const (
	ContextKeyUsername  = "username"
	ContextKeySessionID = "session_id"
	ContextKeyUser      = "current_user"
)

// Identity is what the gate learned about the caller.
type Identity struct {
	Username  string
	SessionID string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by the gate, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Username != ""
}

// Username returns the authenticated username from the echo context.
func Username(c echo.Context) (string, bool) {
	name, ok := c.Get(ContextKeyUsername).(string)
	return name, ok && name != ""
}

// CurrentUser returns the user resolved by Authenticated or Require.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ContextKeyUser).(*model.User)
	return u, ok && u != nil
}
