package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/model"
	"secdash/internal/service"
)

func TestNewPage_FillsIdentityAndCapabilities(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(auth.ContextKeyUser, &model.User{ID: 1, Username: "alice", Role: model.RoleUser})

	page := newPage(c, "Home", nil)

	assert.Equal(t, "alice", page.Username)
	assert.Equal(t, "user", page.Role)
	assert.True(t, page.Caps["crypto:use"])
	assert.False(t, page.Caps["audit:view"])
}

func TestNewPage_Anonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), httptest.NewRecorder())

	page := newPage(c, "Log in", nil)

	assert.Empty(t, page.Username)
	assert.Empty(t, page.Caps)
}

func TestRequestMeta(t *testing.T) {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	req := httptest.NewRequest(http.MethodPost, "/crypto/encrypt?x=1", nil)
	req.Header.Set("User-Agent", "curl/8")
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())

	meta := requestMeta(c)

	assert.Equal(t, "/crypto/encrypt", meta.Resource)
	assert.Equal(t, "10.0.0.7", meta.IPAddress)
	assert.Equal(t, "curl/8", meta.UserAgent)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "New passwords do not match", message(service.ErrPasswordMismatch))
	assert.Equal(t, "Please check the form values", message(fmt.Errorf("%w: email", service.ErrInvalidInput)))
	assert.Equal(t, "Something went wrong, please try again", message(apperrors.ErrStoreUnavailable))
}
