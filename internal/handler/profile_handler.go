package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"secdash/internal/auth"
	"secdash/internal/model"
	"secdash/internal/service"
)

// ProfileHandler lets a user edit their own profile and password.
type ProfileHandler struct {
	svc service.UserService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc service.UserService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

type profileData struct {
	User *model.User
}

// Show renders the profile forms.
func (h *ProfileHandler) Show(c echo.Context) error {
	user, _ := auth.CurrentUser(c)
	return c.Render(http.StatusOK, "profile.html", newPage(c, "Profile", profileData{User: user}))
}

// Update saves email and full name.
func (h *ProfileHandler) Update(c echo.Context) error {
	user, _ := auth.CurrentUser(c)
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return h.render(c, http.StatusBadRequest, user, h.svc.Reject(c.Request().Context(), user, service.OpProfileUpdate, requestMeta(c)), "")
	}
	updated, err := h.svc.UpdateProfile(c.Request().Context(), user, in, requestMeta(c))
	if err != nil {
		return h.render(c, http.StatusBadRequest, user, err, "")
	}
	c.Set(auth.ContextKeyUser, updated)
	return h.render(c, http.StatusOK, updated, nil, "Profile updated")
}

// ChangePassword replaces the password after checking the current one.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	user, _ := auth.CurrentUser(c)
	var in service.PasswordChangeInput
	if err := c.Bind(&in); err != nil {
		return h.render(c, http.StatusBadRequest, user, h.svc.Reject(c.Request().Context(), user, service.OpPasswordChange, requestMeta(c)), "")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), user, in, requestMeta(c)); err != nil {
		return h.render(c, http.StatusBadRequest, user, err, "")
	}
	return h.render(c, http.StatusOK, user, nil, "Password changed")
}

func (h *ProfileHandler) render(c echo.Context, status int, user *model.User, err error, notice string) error {
	page := newPage(c, "Profile", profileData{User: user})
	if err != nil {
		page.Error = message(err)
	}
	page.Notice = notice
	return c.Render(status, "profile.html", page)
}
