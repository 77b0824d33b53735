// Package audit records security-relevant actions in the audit_logs table.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/repository"
)

// Actions written to the audit log.
const (
	ActionLogin                = "login"
	ActionLoginFailed          = "login_failed"
	ActionLogout               = "logout"
	ActionAccessDenied         = "access_denied"
	ActionEncrypt              = "encrypt"
	ActionEncryptFailed        = "encrypt_failed"
	ActionDecrypt              = "decrypt"
	ActionDecryptFailed        = "decrypt_failed"
	ActionProfileUpdate        = "profile_update"
	ActionProfileUpdateFailed  = "profile_update_failed"
	ActionPasswordChange       = "password_change"
	ActionPasswordChangeFailed = "password_change_failed"
	ActionUserCreate           = "user_create"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// unknownUsername stands in when an event arrives without a username.
const unknownUsername = "unknown"

// Meta carries request details attached to every event.
type Meta struct {
	Resource  string
	IPAddress string
	UserAgent string
}

// Event is a single auditable occurrence. Empty strings are stored as NULL.
type Event struct {
	UserID   *uint
	Username string
	Action   string
	Details  string
	Meta
}

// Recorder persists events. Record never fails from the caller's point of view.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Reader lists stored entries newest first.
type Reader interface {
	List(ctx context.Context, limit int) ([]model.AuditLog, error)
	ListByUser(ctx context.Context, username string, limit int) ([]model.AuditLog, error)
}

// Logger implements Recorder and Reader on top of the audit repository.
type Logger struct {
	repo    repository.AuditLogRepository
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewLogger creates an audit logger. Writes and reads are bounded by timeout.
func NewLogger(repo repository.AuditLogRepository, log *zap.Logger, m *metrics.Metrics, timeout time.Duration) *Logger {
	return &Logger{repo: repo, log: log, metrics: m, timeout: timeout}
}

// Record makes one attempt to store e. The write is detached from the
// caller's cancellation so an aborted request still leaves its trace.
func (l *Logger) Record(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	entry := toEntry(e)
	if err := l.repo.Create(ctx, entry); err != nil {
		l.metrics.AuditWriteFailures.Inc()
		l.log.Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.String("username", entry.Username),
			zap.Error(err),
		)
	}
}

func (l *Logger) List(ctx context.Context, limit int) ([]model.AuditLog, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.repo.List(ctx, NormalizeLimit(limit))
}

func (l *Logger) ListByUser(ctx context.Context, username string, limit int) ([]model.AuditLog, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.repo.ListByUsername(ctx, username, NormalizeLimit(limit))
}

// NormalizeLimit maps non-positive values to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func toEntry(e Event) *model.AuditLog {
	username := e.Username
	if username == "" {
		username = unknownUsername
	}
	return &model.AuditLog{
		UserID:    e.UserID,
		Username:  truncate(username, 191),
		Action:    e.Action,
		Resource:  optional(e.Resource, 255),
		Details:   optional(e.Details, 0),
		IPAddress: optional(e.IPAddress, 64),
		UserAgent: optional(e.UserAgent, 512),
	}
}

func optional(s string, max int) *string {
	if s == "" {
		return nil
	}
	s = truncate(s, max)
	return &s
}

// truncate cuts s to at most max bytes on a rune boundary. max 0 means no limit.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !isRuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
