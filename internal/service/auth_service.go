package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"secdash/internal/audit"
	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/session"
	"secdash/internal/tracing"
)

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// LoginResult is handed back to the handler after a successful login.
type LoginResult struct {
	User      *model.User
	SessionID string
	Token     string
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, in LoginInput, previousSessionID string, meta audit.Meta) (*LoginResult, error)
	Logout(ctx context.Context, id auth.Identity, meta audit.Meta) error
}

type authService struct {
	users    UserService
	hasher   auth.PasswordHasher
	sessions session.Store
	tokens   *session.TokenSigner
	recorder audit.Recorder
	metrics  *metrics.Metrics
	log      *zap.Logger
	timeout  time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users UserService,
	hasher auth.PasswordHasher,
	sessions session.Store,
	tokens *session.TokenSigner,
	recorder audit.Recorder,
	m *metrics.Metrics,
	log *zap.Logger,
	timeout time.Duration,
) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		tokens:   tokens,
		recorder: recorder,
		metrics:  m,
		log:      log,
		timeout:  timeout,
	}
}

// Login verifies credentials and opens a new session. Every outcome is
// audited; failures carry no user id and the caller only ever sees
// ErrInvalidCredentials or ErrStoreUnavailable.
func (s *authService) Login(ctx context.Context, in LoginInput, previousSessionID string, meta audit.Meta) (*LoginResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "auth.Login")
	defer span.End()

	fail := func(reason string, err error) (*LoginResult, error) {
		s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		span.SetStatus(codes.Error, reason)
		s.recorder.Record(ctx, audit.Event{
			Username: in.Username,
			Action:   audit.ActionLoginFailed,
			Details:  reason,
			Meta:     meta,
		})
		return nil, err
	}

	if in.Username == "" || in.Password == "" {
		return fail("invalid credentials", apperrors.ErrInvalidCredentials)
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("login lookup failed", zap.Error(err))
		}
		// keep the timing close to a real verification
		_, _ = s.hasher.Verify(in.Password, s.dummy())
		return fail("invalid credentials", apperrors.ErrInvalidCredentials)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn("stored password hash unreadable", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	if !ok {
		return fail("invalid credentials", apperrors.ErrInvalidCredentials)
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sid := session.NewID()
	if err := s.sessions.Set(sctx, sid, session.Data{session.UserKey: user.Username}); err != nil {
		s.metrics.SessionStoreErrors.WithLabelValues("set").Inc()
		s.log.Error("create session failed", zap.Error(err))
		return fail("session error", apperrors.ErrStoreUnavailable)
	}
	token, err := s.tokens.Sign(sid)
	if err != nil {
		_ = s.sessions.Delete(sctx, sid)
		s.log.Error("sign session token failed", zap.Error(err))
		return fail("session error", apperrors.ErrStoreUnavailable)
	}
	if previousSessionID != "" && previousSessionID != sid {
		if err := s.sessions.Delete(sctx, previousSessionID); err != nil {
			s.metrics.SessionStoreErrors.WithLabelValues("delete").Inc()
			s.log.Warn("drop previous session failed", zap.Error(err))
		}
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	s.recorder.Record(ctx, audit.Event{
		UserID:   &user.ID,
		Username: user.Username,
		Action:   audit.ActionLogin,
		Details:  "Logged in",
		Meta:     meta,
	})
	return &LoginResult{User: user, SessionID: sid, Token: token}, nil
}

// Logout audits and removes the session. The user id is looked up on a best
// effort basis.
func (s *authService) Logout(ctx context.Context, id auth.Identity, meta audit.Meta) error {
	var userID *uint
	if user, err := s.users.FindByUsername(ctx, id.Username); err == nil {
		userID = &user.ID
	}
	s.recorder.Record(ctx, audit.Event{
		UserID:   userID,
		Username: id.Username,
		Action:   audit.ActionLogout,
		Details:  "Logged out",
		Meta:     meta,
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.sessions.Delete(ctx, id.SessionID); err != nil {
		s.metrics.SessionStoreErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			s.log.Warn("build dummy hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
