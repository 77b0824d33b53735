package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/model"
	"secdash/internal/rbac"
	"secdash/internal/service"
)

// UserHandler serves the home page and the user list.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type capabilityRow struct {
	Name    string
	Allowed bool
}

type homeData struct {
	Capabilities []capabilityRow
}

// Home lists what the current role may do.
func (h *UserHandler) Home(c echo.Context) error {
	var role model.Role
	if user, ok := auth.CurrentUser(c); ok {
		role = user.Role
	}
	rows := make([]capabilityRow, 0, len(rbac.All))
	for _, capability := range rbac.All {
		rows = append(rows, capabilityRow{Name: capability.String(), Allowed: rbac.Allows(role, capability)})
	}
	return c.Render(http.StatusOK, "home.html", newPage(c, "Home", homeData{Capabilities: rows}))
}

type usersData struct {
	Users []model.User
}

// List renders every account, oldest first.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		page := newPage(c, "Users", usersData{})
		page.Error = apperrors.UserMessage(err)
		return c.Render(http.StatusServiceUnavailable, "users.html", page)
	}
	return c.Render(http.StatusOK, "users.html", newPage(c, "Users", usersData{Users: users}))
}
