package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/mock"

	"secdash/internal/audit"
	"secdash/internal/auth"
	"secdash/internal/model"
)

var testHasherParams = auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newValidator() *validator.Validate {
	return validator.New()
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uint, email, fullName *string) error {
	args := m.Called(ctx, id, email, fullName)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockCipher is a mock implementation of Cipher.
type MockCipher struct {
	mock.Mock
}

func (m *MockCipher) Encrypt(plaintext, password string) (string, error) {
	args := m.Called(plaintext, password)
	return args.String(0), args.Error(1)
}

func (m *MockCipher) Decrypt(token, password string) (string, error) {
	args := m.Called(token, password)
	return args.String(0), args.Error(1)
}

// recorderSpy keeps every recorded event in memory.
type recorderSpy struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorderSpy) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorderSpy) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

func (r *recorderSpy) Count(action string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Action == action {
			n++
		}
	}
	return n
}
