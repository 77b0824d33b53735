package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"secdash/internal/audit"
	apperrors "secdash/internal/errors"
	"secdash/internal/model"
)

// AuditQuery filters the audit page.
type AuditQuery struct {
	User  string `query:"user" validate:"omitempty,max=191"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// AuditHandler shows recent audit entries.
type AuditHandler struct {
	reader audit.Reader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(reader audit.Reader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

type auditData struct {
	Filter  string
	Entries []model.AuditLog
}

// List renders the newest entries, optionally for one username.
func (h *AuditHandler) List(c echo.Context) error {
	var q AuditQuery
	if err := c.Bind(&q); err != nil {
		return h.render(c, http.StatusBadRequest, auditData{}, "Please check the filter values")
	}
	if err := c.Validate(&q); err != nil {
		return h.render(c, http.StatusBadRequest, auditData{Filter: q.User}, "Please check the filter values")
	}

	ctx := c.Request().Context()
	var (
		entries []model.AuditLog
		err     error
	)
	if q.User != "" {
		entries, err = h.reader.ListByUser(ctx, q.User, q.Limit)
	} else {
		entries, err = h.reader.List(ctx, q.Limit)
	}
	if err != nil {
		return h.render(c, http.StatusServiceUnavailable, auditData{Filter: q.User}, apperrors.UserMessage(err))
	}
	return h.render(c, http.StatusOK, auditData{Filter: q.User, Entries: entries}, "")
}

func (h *AuditHandler) render(c echo.Context, status int, data auditData, errMsg string) error {
	page := newPage(c, "Audit log", data)
	page.Error = errMsg
	return c.Render(status, "audit.html", page)
}
