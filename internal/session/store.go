// Package session keeps server-side login state keyed by an opaque id.
package session

import (
	"context"

	"github.com/google/uuid"
)

// UserKey is the bag key holding the logged-in username.
const UserKey = "user"

// Data is the key/value bag stored for a session.
type Data map[string]string

// Store is the session backend. Get returns errors.ErrNoSession (or
// errors.ErrSessionExpired when the backend can tell) for unknown ids and
// errors.ErrStoreUnavailable when the backend itself fails.
type Store interface {
	Get(ctx context.Context, id string) (Data, error)
	Set(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
	// Touch restarts the inactivity window without changing the bag.
	Touch(ctx context.Context, id string) error
}

// NewID returns a fresh unguessable session id.
func NewID() string {
	return uuid.NewString()
}

func (d Data) clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
