package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"secdash/internal/audit"
	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/repository"
)

var (
	// ErrCurrentPasswordIncorrect is returned when the current password does not verify.
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	// ErrPasswordMismatch is returned when the new password and its confirmation differ.
	ErrPasswordMismatch = errors.New("new passwords do not match")
	// ErrPasswordTooShort is returned when the new password is under MinPasswordLength.
	ErrPasswordTooShort = errors.New("new password must be at least 8 characters")
	// ErrInvalidInput is returned when a form fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Profile operations that Reject can audit.
const (
	OpProfileUpdate  = "profile_update"
	OpPasswordChange = "password_change"
)

// MinPasswordLength is counted in characters.
const MinPasswordLength = 8

// ProfileInput is the editable part of a user's profile. Empty values clear the field.
type ProfileInput struct {
	Email    string `form:"email" validate:"omitempty,email,max=255"`
	FullName string `form:"full_name" validate:"max=255"`
}

// PasswordChangeInput is the password change form.
type PasswordChangeInput struct {
	CurrentPassword string `form:"current_password"`
	NewPassword     string `form:"new_password" validate:"required,min=8,max=1024"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=NewPassword"`
}

// NewUserInput provisions an account.
type NewUserInput struct {
	Username string     `validate:"required,max=191"`
	Password string     `validate:"required,min=8,max=1024"`
	Role     model.Role `validate:"required,oneof=admin user viewer"`
	Email    string     `validate:"omitempty,email,max=255"`
	FullName string     `validate:"max=255"`
}

// UserService exposes user operations.
type UserService interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in NewUserInput, meta audit.Meta) (*model.User, error)
	UpdateProfile(ctx context.Context, actor *model.User, in ProfileInput, meta audit.Meta) (*model.User, error)
	ChangePassword(ctx context.Context, actor *model.User, in PasswordChangeInput, meta audit.Meta) error
	// Reject audits a profile form that could not be read and returns
	// ErrMalformedRequest.
	Reject(ctx context.Context, actor *model.User, op string, meta audit.Meta) error
}

type userService struct {
	repo     repository.UserRepository
	hasher   auth.PasswordHasher
	recorder audit.Recorder
	validate *validator.Validate
	metrics  *metrics.Metrics
	log      *zap.Logger
	timeout  time.Duration
}

// NewUserService builds a UserService. Every repository call is bounded by timeout.
func NewUserService(
	repo repository.UserRepository,
	hasher auth.PasswordHasher,
	recorder audit.Recorder,
	validate *validator.Validate,
	m *metrics.Metrics,
	log *zap.Logger,
	timeout time.Duration,
) UserService {
	return &userService{
		repo:     repo,
		hasher:   hasher,
		recorder: recorder,
		validate: validate,
		metrics:  m,
		log:      log,
		timeout:  timeout,
	}
}

// FindByUsername loads a user and validates its role. A role outside the
// known set is logged and downgraded to viewer.
func (s *userService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	s.normalizeRole(user)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		s.normalizeRole(&users[i])
	}
	return users, nil
}

func (s *userService) normalizeRole(user *model.User) {
	role, err := model.ParseRole(string(user.Role))
	if err != nil {
		s.metrics.UnknownRoles.Inc()
		s.log.Warn("unknown role, treating as viewer",
			zap.Uint("user_id", user.ID),
			zap.String("username", user.Username),
			zap.String("role", string(user.Role)),
		)
		role = model.RoleViewer
	}
	user.Role = role
}

func (s *userService) CreateUser(ctx context.Context, in NewUserInput, meta audit.Meta) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(in.Username) != in.Username {
		return nil, fmt.Errorf("%w: username has surrounding whitespace", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		Email:        nullable(in.Email),
		FullName:     nullable(in.FullName),
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(dbCtx, user); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Event{
		UserID:   &user.ID,
		Username: user.Username,
		Action:   audit.ActionUserCreate,
		Details:  fmt.Sprintf("Created user with role %s", user.Role),
		Meta:     meta,
	})
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor *model.User, in ProfileInput, meta audit.Meta) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	fail := func(reason string, err error) (*model.User, error) {
		s.record(ctx, actor, audit.ActionProfileUpdateFailed, reason, meta)
		return nil, err
	}

	if err := s.validate.Struct(in); err != nil {
		return fail("invalid input", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.UpdateProfile(dbCtx, actor.ID, nullable(in.Email), nullable(in.FullName)); err != nil {
		return fail(apperrors.Category(err), err)
	}
	updated, err := s.repo.FindByID(dbCtx, actor.ID)
	if err != nil {
		return fail(apperrors.Category(err), err)
	}
	s.normalizeRole(updated)

	s.record(ctx, actor, audit.ActionProfileUpdate, "Updated email and full name", meta)
	return updated, nil
}

func (s *userService) ChangePassword(ctx context.Context, actor *model.User, in PasswordChangeInput, meta audit.Meta) error {
	fail := func(reason string, err error) error {
		s.record(ctx, actor, audit.ActionPasswordChangeFailed, reason, meta)
		return err
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, actor.PasswordHash)
	if err != nil {
		s.log.Warn("stored password hash unreadable", zap.Uint("user_id", actor.ID), zap.Error(err))
	}
	if !ok {
		return fail("current password incorrect", ErrCurrentPasswordIncorrect)
	}

	if err := s.validate.Struct(in); err != nil {
		switch {
		case fieldFailed(err, "ConfirmPassword"):
			return fail("confirmation mismatch", ErrPasswordMismatch)
		case fieldFailed(err, "NewPassword"):
			return fail("password too short", ErrPasswordTooShort)
		default:
			return fail("invalid input", ErrInvalidInput)
		}
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fail("hash failed", fmt.Errorf("hash password: %w", err))
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.UpdatePassword(dbCtx, actor.ID, hash); err != nil {
		return fail(apperrors.Category(err), err)
	}

	actor.PasswordHash = hash
	s.record(ctx, actor, audit.ActionPasswordChange, "Password changed", meta)
	return nil
}

func (s *userService) Reject(ctx context.Context, actor *model.User, op string, meta audit.Meta) error {
	var action string
	switch op {
	case OpProfileUpdate:
		action = audit.ActionProfileUpdateFailed
	case OpPasswordChange:
		action = audit.ActionPasswordChangeFailed
	default:
		return fmt.Errorf("unknown profile operation %q", op)
	}
	s.record(ctx, actor, action, apperrors.Category(apperrors.ErrMalformedRequest), meta)
	return apperrors.ErrMalformedRequest
}

func (s *userService) record(ctx context.Context, actor *model.User, action, details string, meta audit.Meta) {
	s.recorder.Record(ctx, audit.Event{
		UserID:   &actor.ID,
		Username: actor.Username,
		Action:   action,
		Details:  details,
		Meta:     meta,
	})
}

func fieldFailed(err error, field string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
