package identity

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountStore is the narrow lookup surface the provider needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

// Provider verifies credentials against the account store.
type Provider struct {
	store  AccountStore
	logger Logger
}

// NewAccountProvider will create a new Provider
func NewAccountProvider(store AccountStore) *Provider {
	return &Provider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *Provider) WithLogger(l Logger) *Provider {
	if l != nil {
		p.logger = l
	}
	return p
}

// VerifyIdentity finds the account, checks verification state, compares
// the password, and returns the identity. Unknown email and wrong
// password collapse into the same error; an unverified account is
// reported distinctly so clients can prompt re-verification.
func (p Provider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !account.IsVerified {
		return nil, ErrAccountUnverified
	}

	// federation-only accounts have no password to compare
	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromAccount(account), nil
}

// FindIdentityByEmail retrieves an identity without checking credentials.
func (p Provider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return NewIdentityFromAccount(account), nil
}

var _ AccountProvider = (*Provider)(nil)
