package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when a username/password pair does not verify.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoSession is returned when a request carries no usable session.
	ErrNoSession = errors.New("no session")
	// ErrSessionExpired is returned when a session outlived its inactivity window.
	ErrSessionExpired = errors.New("session expired")
	// ErrDenied is returned when a role lacks a capability.
	ErrDenied = errors.New("access denied")
	// ErrStoreUnavailable is returned when the database or session store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserAlreadyExists is returned when a username is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrMalformedToken is returned when a ciphertext token cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")
	// ErrAuthenticationFailed is returned when a ciphertext fails AEAD verification.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNonUTF8Plaintext is returned when decrypted bytes are not valid UTF-8.
	ErrNonUTF8Plaintext = errors.New("plaintext is not valid UTF-8")
	// ErrKeyDerivationFailed is returned when the key or cipher cannot be set up.
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	// ErrMalformedRequest is returned when a submitted form cannot be parsed.
	ErrMalformedRequest = errors.New("malformed request")
)

// AuthzError records which capability was missing.
type AuthzError struct {
	Capability string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("access denied: missing capability %s", e.Capability)
}

// Is lets errors.Is(err, ErrDenied) match an AuthzError.
func (e *AuthzError) Is(target error) bool {
	return target == ErrDenied
}

// UserMessage maps domain errors to text that is safe to show in a page.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionExpired):
		return "Please log in"
	case errors.Is(err, ErrDenied):
		return "You do not have access to this page"
	case errors.Is(err, ErrMalformedToken):
		return "Decryption failed: the ciphertext is not a valid token"
	case errors.Is(err, ErrAuthenticationFailed):
		return "Decryption failed: wrong password or corrupted data"
	case errors.Is(err, ErrNonUTF8Plaintext):
		return "Decryption failed: the result is not valid text"
	case errors.Is(err, ErrKeyDerivationFailed):
		return "Encryption setup failed"
	case errors.Is(err, ErrMalformedRequest):
		return "The form could not be read, please try again"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrUserAlreadyExists):
		return "User already exists"
	default:
		return "Something went wrong, please try again"
	}
}

// Category returns a short label for the error class, used in audit details and metrics.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed token"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication failed"
	case errors.Is(err, ErrNonUTF8Plaintext):
		return "non-utf8 plaintext"
	case errors.Is(err, ErrKeyDerivationFailed):
		return "key derivation failed"
	case errors.Is(err, ErrStoreUnavailable):
		return "store unavailable"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed request"
	default:
		return "internal error"
	}
}
