package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secdash/internal/audit"
	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/rbac"
)

// UserResolver loads the user behind a session username.
type UserResolver interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Authorizer turns the gate's username into a User and enforces capabilities.
type Authorizer struct {
	users    UserResolver
	recorder audit.Recorder
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(users UserResolver, recorder audit.Recorder, m *metrics.Metrics, log *zap.Logger) *Authorizer {
	return &Authorizer{users: users, recorder: recorder, metrics: m, log: log}
}

// Authenticated resolves the current user without checking a capability.
// A session whose user can no longer be loaded is sent back to the login page.
func (a *Authorizer) Authenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := a.resolve(c); err != nil {
				return RedirectToLogin(c)
			}
			return next(c)
		}
	}
}

// Require allows the request only when the current user's role grants
// capability. A denial is audited and redirected to the home page.
func (a *Authorizer) Require(capability rbac.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := a.resolve(c)
			if err != nil {
				return RedirectToLogin(c)
			}
			if err := Check(user, capability); err != nil {
				a.metrics.AccessDenied.WithLabelValues(capability.String()).Inc()
				req := c.Request()
				a.recorder.Record(req.Context(), audit.Event{
					UserID:   &user.ID,
					Username: user.Username,
					Action:   audit.ActionAccessDenied,
					Details:  fmt.Sprintf("capability %s denied for role %s", capability, user.Role),
					Meta: audit.Meta{
						Resource:  req.URL.Path,
						IPAddress: c.RealIP(),
						UserAgent: req.UserAgent(),
					},
				})
				return c.Redirect(http.StatusFound, "/")
			}
			return next(c)
		}
	}
}

// Check returns an *errors.AuthzError when user lacks capability.
func Check(user *model.User, capability rbac.Capability) error {
	if !rbac.Allows(user.Role, capability) {
		return &apperrors.AuthzError{Capability: capability.String()}
	}
	return nil
}

func (a *Authorizer) resolve(c echo.Context) (*model.User, error) {
	if user, ok := CurrentUser(c); ok {
		return user, nil
	}
	username, ok := Username(c)
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	user, err := a.users.FindByUsername(c.Request().Context(), username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			a.log.Warn("resolve session user failed", zap.String("username", username), zap.Error(err))
		}
		return nil, err
	}
	c.Set(ContextKeyUser, user)
	return user, nil
}
