package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed claim set carried by a session assertion.
// It is derived, never persisted; expiry is the only revocation.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	AccountRole string `json:"role,omitempty"`
	Email       string `json:"email,omitempty"`
}

// AccountID returns the account the session was issued for.
func (c *SessionClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role claim.
func (c *SessionClaims) Role() Role {
	return c.AccountRole
}

// HasRole checks if the session carries a specific role
func (c *SessionClaims) HasRole(role Role) bool {
	return c.AccountRole == role
}

// IsAdmin reports whether the session carries the admin role.
func (c *SessionClaims) IsAdmin() bool {
	return c.AccountRole == RoleAdmin
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
