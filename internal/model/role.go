package model

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// ErrUnknownRole is returned when a stored role is outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole validates a stored role string. An empty value comes from rows
// created before roles existed and maps to RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleViewer
}

func (r Role) String() string {
	return string(r)
}
