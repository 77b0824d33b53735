package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/session"
)

const (
	LoginPath    = "/login"
	staticPrefix = "/static/"
)

// GateConfig wires the session gate.
type GateConfig struct {
	Sessions   session.Store
	Tokens     *session.TokenSigner
	CookieName string
	Timeout    time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// IsPublicPath reports whether path bypasses the gate.
func IsPublicPath(path string) bool {
	return path == LoginPath || strings.HasPrefix(path, staticPrefix)
}

// Gate rejects requests without a live session. It verifies the signed
// cookie with echo-jwt, loads the session bag and attaches the username to
// the echo and request contexts. Any failure redirects to the login page.
// Roles are not checked here.
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	skipper := func(c echo.Context) bool {
		return IsPublicPath(c.Request().URL.Path)
	}

	verify := echojwt.WithConfig(echojwt.Config{
		Skipper:     skipper,
		TokenLookup: "cookie:" + cfg.CookieName,
		ContextKey:  ContextKeySessionID,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return cfg.Tokens.Parse(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return RedirectToLogin(c)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		lookup := func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}
			sid, _ := c.Get(ContextKeySessionID).(string)

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()

			data, err := cfg.Sessions.Get(ctx, sid)
			if err != nil {
				if !errors.Is(err, apperrors.ErrNoSession) && !errors.Is(err, apperrors.ErrSessionExpired) {
					cfg.Metrics.SessionStoreErrors.WithLabelValues("get").Inc()
					cfg.Logger.Warn("session lookup failed", zap.Error(err))
				}
				return RedirectToLogin(c)
			}
			username := data[session.UserKey]
			if username == "" {
				return RedirectToLogin(c)
			}

			if err := cfg.Sessions.Touch(ctx, sid); err != nil {
				cfg.Metrics.SessionStoreErrors.WithLabelValues("touch").Inc()
				cfg.Logger.Debug("session touch failed", zap.Error(err))
			}

			c.Set(ContextKeyUsername, username)
			req := c.Request()
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), Identity{Username: username, SessionID: sid})))
			return next(c)
		}
		return verify(lookup)
	}
}

// RedirectToLogin sends the client to the login page.
func RedirectToLogin(c echo.Context) error {
	return c.Redirect(http.StatusFound, LoginPath)
}
