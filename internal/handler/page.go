package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"secdash/internal/audit"
	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/rbac"
	"secdash/internal/service"
)

// Page is the data every template receives.
type Page struct {
	Title    string
	Username string
	Role     string
	Caps     map[string]bool
	Error    string
	Notice   string
	Data     interface{}
}

func newPage(c echo.Context, title string, data interface{}) *Page {
	p := &Page{Title: title, Data: data, Caps: map[string]bool{}}
	if user, ok := auth.CurrentUser(c); ok {
		p.Username = user.Username
		p.Role = user.Role.String()
		for capability, allowed := range rbac.Capabilities(user.Role) {
			p.Caps[capability.String()] = allowed
		}
	} else if name, ok := auth.Username(c); ok {
		p.Username = name
	}
	return p
}

func requestMeta(c echo.Context) audit.Meta {
	req := c.Request()
	return audit.Meta{
		Resource:  req.URL.Path,
		IPAddress: c.RealIP(),
		UserAgent: req.UserAgent(),
	}
}

// message maps service errors onto text safe to show in a page.
func message(err error) string {
	switch {
	case errors.Is(err, service.ErrCurrentPasswordIncorrect):
		return "Current password is incorrect"
	case errors.Is(err, service.ErrPasswordMismatch):
		return "New passwords do not match"
	case errors.Is(err, service.ErrPasswordTooShort):
		return "New password must be at least 8 characters"
	case errors.Is(err, service.ErrInvalidInput):
		return "Please check the form values"
	default:
		return apperrors.UserMessage(err)
	}
}
