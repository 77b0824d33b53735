package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/service"
	"secdash/internal/session"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles login and logout.
type AuthHandler struct {
	authService service.AuthService
	tokens      *session.TokenSigner
	cookie      CookieConfig
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, tokens *session.TokenSigner, cookie CookieConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, cookie: cookie, log: log}
}

type loginForm struct {
	Username string
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", newPage(c, "Log in", loginForm{}))
}

// Login verifies the submitted credentials, starts a fresh session and
// redirects home. A failure re-renders the form with a generic message.
func (h *AuthHandler) Login(c echo.Context) error {
	// an unreadable form still reaches the service so the attempt is audited
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		in = service.LoginInput{}
	}

	result, err := h.authService.Login(c.Request().Context(), in, h.previousSession(c), requestMeta(c))
	if err != nil {
		return h.loginFailed(c, in.Username, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) loginFailed(c echo.Context, username string, err error) error {
	status := http.StatusUnauthorized
	if errors.Is(err, apperrors.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
	}
	page := newPage(c, "Log in", loginForm{Username: username})
	page.Error = apperrors.UserMessage(err)
	return c.Render(status, "login.html", page)
}

// previousSession returns the session id of a cookie the browser still
// holds, so it can be dropped when a new session starts.
func (h *AuthHandler) previousSession(c echo.Context) string {
	cookie, err := c.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	sid, err := h.tokens.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return sid
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if id, ok := auth.IdentityFrom(c.Request().Context()); ok {
		if err := h.authService.Logout(c.Request().Context(), id, requestMeta(c)); err != nil {
			h.log.Warn("logout failed", zap.String("username", id.Username), zap.Error(err))
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, auth.LoginPath)
}
