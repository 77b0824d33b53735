package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"secdash/internal/audit"
	"secdash/internal/auth"
	"secdash/internal/cache"
	"secdash/internal/config"
	"secdash/internal/cryptox"
	"secdash/internal/db"
	"secdash/internal/handler"
	"secdash/internal/logger"
	"secdash/internal/metrics"
	"secdash/internal/repository"
	"secdash/internal/router"
	"secdash/internal/service"
	"secdash/internal/session"
	"secdash/internal/tracing"
	"secdash/internal/view"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup("secdash", version, cfg.TraceSampleRatio)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			zl.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, zl)
	if err != nil {
		return err
	}
	if cfg.ResetDB {
		zl.Warn("RESET_DB set, dropping tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		return err
	}

	m := metrics.New()

	var sessions session.Store
	switch cfg.SessionBackend {
	case config.BackendRedis:
		client := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer func() { _ = client.Close() }()
		pctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		err := client.Ping(pctx)
		cancel()
		if err != nil {
			return err
		}
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
	default:
		mem := session.NewMemoryStore(cfg.SessionTTL)
		go mem.RunJanitor(ctx, time.Minute)
		sessions = mem
	}

	tokens := session.NewTokenSigner(cfg.SessionSecret)
	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	validate := validator.New()

	userRepo := repository.NewUserRepository(gormDB)
	auditRepo := repository.NewAuditLogRepository(gormDB)
	recorder := audit.NewLogger(auditRepo, zl, m, cfg.StoreTimeout)

	userService := service.NewUserService(userRepo, hasher, recorder, validate, m, zl, cfg.StoreTimeout)
	authService := service.NewAuthService(userService, hasher, sessions, tokens, recorder, m, zl, cfg.StoreTimeout)
	cryptoService := service.NewCryptoService(cryptox.New(cryptox.DefaultKDFParams), recorder, m, 4)

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	gate := auth.Gate(auth.GateConfig{
		Sessions:   sessions,
		Tokens:     tokens,
		CookieName: cfg.SessionCookie,
		Timeout:    cfg.StoreTimeout,
		Logger:     zl,
		Metrics:    m,
	})
	authz := auth.NewAuthorizer(userService, recorder, m, zl)

	router.Register(e, cfg, zl, m, gate, authz, validate, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, tokens, handler.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.CookieSecure}, zl),
		User:    handler.NewUserHandler(userService),
		Profile: handler.NewProfileHandler(userService),
		Crypto:  handler.NewCryptoHandler(cryptoService),
		Audit:   handler.NewAuditHandler(recorder),
		SysInfo: handler.NewSysInfoHandler(time.Now(), 2*time.Second),
	})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			zl.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("metrics server", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		zl.Info("server listening", zap.String("addr", addr), zap.String("sessions", cfg.SessionBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		zl.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(sctx)
	}
	return e.Shutdown(sctx)
}
