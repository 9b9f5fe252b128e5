package identity

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (*SessionClaims, error)
}

// AccountProvider ensures we have a store to retrieve auth identities
type AccountProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// SessionCodec creates and verifies signed session assertions
type SessionCodec interface {
	IssueSession(identity Identity) (string, error)
	VerifySession(raw string) (*SessionClaims, error)
}

// Notifier delivers token secrets out of band. Implementations must not
// log or persist the secret beyond handing it to the transport.
type Notifier interface {
	SendVerification(ctx context.Context, account *Account, secret string) error
	SendPasswordReset(ctx context.Context, account *Account, secret string) error
}

// Config holds identity options
type Config interface {
	GetSigningKey() string
	GetSessionTTL() time.Duration
	GetIssuer() string
	GetBaseURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
