package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Role          Role       `bun:"account_role,notnull" json:"role,omitempty"`
	IsVerified    bool       `bun:"is_verified" json:"is_verified,omitempty"`
	FederatedID   *string    `bun:"federated_id,nullzero" json:"federated_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasCredential reports whether the account satisfies the invariant that
// it is reachable through a password or a federated identity.
func (a *Account) HasCredential() bool {
	if a == nil {
		return false
	}
	return a.PasswordHash != "" || (a.FederatedID != nil && *a.FederatedID != "")
}

// EnsureRole defaults the role to client when unset.
func (a *Account) EnsureRole() {
	if a.Role == "" {
		a.Role = RoleClient
	}
}

// NormalizeEmail lowercases and trims an email the same way the store
// boundary does, so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenPurpose tags a token with the single flow it can be consumed by.
type TokenPurpose = string

const (
	// PurposeEmailVerification is a token proving control of an email address
	PurposeEmailVerification TokenPurpose = "email-verification"
	// PurposePasswordReset is a token authorizing a password change
	PurposePasswordReset TokenPurpose = "password-reset"
)

const (
	// VerificationTokenTTL bounds email verification tokens
	VerificationTokenTTL = time.Hour
	// ResetTokenTTL bounds password reset tokens
	ResetTokenTTL = 15 * time.Minute
	// SessionTTL is the default session assertion lifetime
	SessionTTL = 24 * time.Hour
)

// PurposeTTL returns the lifetime for a token purpose.
func PurposeTTL(purpose TokenPurpose) time.Duration {
	if purpose == PurposePasswordReset {
		return ResetTokenTTL
	}
	return VerificationTokenTTL
}

// Token is a single-use, store-backed opaque secret tied to an account.
// Tokens stay opaque and purpose-tagged: a verification secret can never
// be replayed against the reset flow.
type Token struct {
	bun.BaseModel `bun:"table:account_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Secret        string     `bun:"secret,notnull,unique" json:"-"`
	Purpose       string     `bun:"purpose,notnull" json:"purpose,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}
