package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"secdash/internal/audit"
	apperrors "secdash/internal/errors"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/tracing"
)

// Cipher is the password-based text cipher.
type Cipher interface {
	Encrypt(plaintext, password string) (string, error)
	Decrypt(token, password string) (string, error)
}

// Crypto operations, as named in spans, metrics and Reject.
const (
	OpEncrypt = "encrypt"
	OpDecrypt = "decrypt"
)

// CryptoService runs the text cipher for a user and audits each attempt.
// Neither plaintext nor password ever reaches the audit log.
type CryptoService interface {
	Encrypt(ctx context.Context, actor *model.User, plaintext, password string, meta audit.Meta) (string, error)
	Decrypt(ctx context.Context, actor *model.User, token, password string, meta audit.Meta) (string, error)
	// Reject audits an attempt whose form could not be read and returns
	// ErrMalformedRequest.
	Reject(ctx context.Context, actor *model.User, op string, meta audit.Meta) error
}

type cryptoService struct {
	cipher   Cipher
	recorder audit.Recorder
	metrics  *metrics.Metrics
	slots    *semaphore.Weighted
}

// NewCryptoService creates a CryptoService. At most maxConcurrent key
// derivations run at once since each one holds the KDF memory cost.
func NewCryptoService(cipher Cipher, recorder audit.Recorder, m *metrics.Metrics, maxConcurrent int64) CryptoService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &cryptoService{
		cipher:   cipher,
		recorder: recorder,
		metrics:  m,
		slots:    semaphore.NewWeighted(maxConcurrent),
	}
}

func (s *cryptoService) Encrypt(ctx context.Context, actor *model.User, plaintext, password string, meta audit.Meta) (string, error) {
	token, err := s.run(ctx, OpEncrypt, func() (string, error) {
		return s.cipher.Encrypt(plaintext, password)
	})
	if err != nil {
		s.record(ctx, actor, audit.ActionEncryptFailed, "Encryption failed: "+apperrors.Category(err), meta)
		return "", err
	}
	s.record(ctx, actor, audit.ActionEncrypt, fmt.Sprintf("Encrypted text (length: %d)", len(plaintext)), meta)
	return token, nil
}

func (s *cryptoService) Decrypt(ctx context.Context, actor *model.User, token, password string, meta audit.Meta) (string, error) {
	plaintext, err := s.run(ctx, OpDecrypt, func() (string, error) {
		return s.cipher.Decrypt(token, password)
	})
	if err != nil {
		s.record(ctx, actor, audit.ActionDecryptFailed, "Decryption failed: "+apperrors.Category(err), meta)
		return "", err
	}
	s.record(ctx, actor, audit.ActionDecrypt, fmt.Sprintf("Decrypted text (length: %d)", len(plaintext)), meta)
	return plaintext, nil
}

func (s *cryptoService) Reject(ctx context.Context, actor *model.User, op string, meta audit.Meta) error {
	var action, details string
	switch op {
	case OpEncrypt:
		action, details = audit.ActionEncryptFailed, "Encryption failed: "
	case OpDecrypt:
		action, details = audit.ActionDecryptFailed, "Decryption failed: "
	default:
		return fmt.Errorf("unknown crypto operation %q", op)
	}
	s.metrics.CryptoOperations.WithLabelValues(op, "failure").Inc()
	s.record(ctx, actor, action, details+apperrors.Category(apperrors.ErrMalformedRequest), meta)
	return apperrors.ErrMalformedRequest
}

func (s *cryptoService) run(ctx context.Context, op string, fn func() (string, error)) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "crypto."+op)
	defer span.End()

	if err := s.slots.Acquire(ctx, 1); err != nil {
		s.metrics.CryptoOperations.WithLabelValues(op, "cancelled").Inc()
		span.SetStatus(codes.Error, "cancelled")
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer s.slots.Release(1)

	out, err := fn()
	if err != nil {
		category := apperrors.Category(err)
		s.metrics.CryptoOperations.WithLabelValues(op, "failure").Inc()
		span.SetAttributes(attribute.String("crypto.error", category))
		span.SetStatus(codes.Error, category)
		return "", err
	}
	s.metrics.CryptoOperations.WithLabelValues(op, "success").Inc()
	return out, nil
}

func (s *cryptoService) record(ctx context.Context, actor *model.User, action, details string, meta audit.Meta) {
	s.recorder.Record(ctx, audit.Event{
		UserID:   &actor.ID,
		Username: actor.Username,
		Action:   action,
		Details:  details,
		Meta:     meta,
	})
}
