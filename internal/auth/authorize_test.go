package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"secdash/internal/audit"
	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/rbac"
)

// MockUserResolver is a mock implementation of UserResolver.
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockRecorder is a mock implementation of audit.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, e audit.Event) {
	m.Called(ctx, e)
}

// serve runs a request through mw as if the gate had authenticated username.
func serve(mw echo.MiddlewareFunc, username, path string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderXRealIP, "192.0.2.10")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if username != "" {
		c.Set(ContextKeyUsername, username)
	}

	h := mw(func(c echo.Context) error {
		user, _ := CurrentUser(c)
		return c.String(http.StatusOK, "hello "+user.Username)
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestAuthorizer_Require(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		capability rbac.Capability
		path       string
		allowed    bool
	}{
		{name: "admin users", role: model.RoleAdmin, capability: rbac.ManageUsers, path: "/users", allowed: true},
		{name: "user crypto", role: model.RoleUser, capability: rbac.UseCrypto, path: "/crypto", allowed: true},
		{name: "user audit", role: model.RoleUser, capability: rbac.ViewAuditLog, path: "/audit", allowed: false},
		{name: "viewer users", role: model.RoleViewer, capability: rbac.ManageUsers, path: "/users", allowed: false},
		{name: "viewer sysinfo", role: model.RoleViewer, capability: rbac.ViewSystemMetrics, path: "/sysinfo", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{ID: 42, Username: "carol", Role: tt.role}
			users := new(MockUserResolver)
			users.On("FindByUsername", mock.Anything, "carol").Return(user, nil).Once()
			recorder := new(MockRecorder)
			if !tt.allowed {
				recorder.On("Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
					return e.Action == audit.ActionAccessDenied &&
						e.Username == "carol" &&
						e.UserID != nil && *e.UserID == 42 &&
						e.Resource == tt.path &&
						e.IPAddress == "192.0.2.10" &&
						e.UserAgent == "test-agent"
				})).Return().Once()
			}
			m := metrics.New()

			a := NewAuthorizer(users, recorder, m, zap.NewNop())
			rec := serve(a.Require(tt.capability), "carol", tt.path)

			if tt.allowed {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, "hello carol", rec.Body.String())
			} else {
				assert.Equal(t, http.StatusFound, rec.Code)
				assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
				assert.Equal(t, float64(1), testutil.ToFloat64(m.AccessDenied.WithLabelValues(tt.capability.String())))
			}
			users.AssertExpectations(t)
			recorder.AssertExpectations(t)
		})
	}
}

func TestAuthorizer_FailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		username string
		err      error
	}{
		{name: "no username on context", username: ""},
		{name: "user deleted", username: "ghost", err: apperrors.ErrNotFound},
		{name: "store down", username: "alice", err: apperrors.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserResolver)
			recorder := new(MockRecorder)
			a := NewAuthorizer(users, recorder, metrics.New(), zap.NewNop())

			for _, mw := range []echo.MiddlewareFunc{a.Require(rbac.UseCrypto), a.Authenticated()} {
				if tt.username != "" {
					users.On("FindByUsername", mock.Anything, tt.username).Return(nil, tt.err).Once()
				}
				rec := serve(mw, tt.username, "/crypto")
				assert.Equal(t, http.StatusFound, rec.Code)
				assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
			}
			recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		})
	}
}

func TestCheck(t *testing.T) {
	err := Check(&model.User{Role: model.RoleViewer}, rbac.ViewAuditLog)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDenied))

	var authz *apperrors.AuthzError
	require.True(t, errors.As(err, &authz))
	assert.Equal(t, "audit:view", authz.Capability)

	assert.NoError(t, Check(&model.User{Role: model.RoleAdmin}, rbac.ViewAuditLog))
}
