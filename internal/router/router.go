package router

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"secdash/internal/auth"
	"secdash/internal/config"
	"secdash/internal/handler"
	"secdash/internal/metrics"
	"secdash/internal/rbac"
	"secdash/internal/tracing"
)

// Handlers groups the page handlers.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Profile *handler.ProfileHandler
	Crypto  *handler.CryptoHandler
	Audit   *handler.AuditHandler
	SysInfo *handler.SysInfoHandler
}

// Register wires routes and middleware. Every route except the login page
// and static assets sits behind the session gate.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	gate echo.MiddlewareFunc,
	authz *auth.Authorizer,
	validate *validator.Validate,
	h Handlers,
) {
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(traceRequests())
	// metrics wraps the request log: the log handles and returns the error,
	// then metrics reads the committed status
	e.Use(m.Middleware())
	e.Use(requestLogger(log))
	e.Use(gate)

	e.Static("/static", cfg.StaticDir)

	e.GET(auth.LoginPath, h.Auth.LoginPage)
	e.POST(auth.LoginPath, h.Auth.Login)
	e.GET("/logout", h.Auth.Logout)
	e.POST("/logout", h.Auth.Logout)

	e.GET("/", h.User.Home, authz.Authenticated())

	profile := e.Group("/profile", authz.Authenticated())
	profile.GET("", h.Profile.Show)
	profile.POST("", h.Profile.Update)
	profile.POST("/password", h.Profile.ChangePassword)

	e.GET("/users", h.User.List, authz.Require(rbac.ManageUsers))
	e.GET("/audit", h.Audit.List, authz.Require(rbac.ViewAuditLog))

	crypto := e.Group("/crypto", authz.Require(rbac.UseCrypto))
	crypto.GET("", h.Crypto.Index)
	crypto.POST("/encrypt", h.Crypto.Encrypt)
	crypto.POST("/decrypt", h.Crypto.Decrypt)

	sysinfo := e.Group("/sysinfo", authz.Require(rbac.ViewSystemMetrics))
	sysinfo.GET("", h.SysInfo.Index)
	sysinfo.GET("/live", h.SysInfo.Live)
}

// traceRequests opens a server span per request so services and the request
// log share one trace id.
func traceRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := tracing.Tracer().Start(req.Context(), req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Truncate(time.Microsecond)),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if traceID := tracing.TraceID(c.Request().Context()); traceID != "" {
				fields = append(fields, zap.String("trace_id", traceID))
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
