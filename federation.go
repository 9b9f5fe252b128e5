package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// FederatedProfile is a normalized identity assertion from an external
// provider. The provider already attested control of the email.
type FederatedProfile struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
}

// AssertionVerifier validates a raw provider callback payload and
// normalizes it into a FederatedProfile.
type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (*FederatedProfile, error)
}

// AssertionVerifierFunc adapts a function into an AssertionVerifier.
type AssertionVerifierFunc func(ctx context.Context, assertion string) (*FederatedProfile, error)

// Verify satisfies the AssertionVerifier interface.
func (f AssertionVerifierFunc) Verify(ctx context.Context, assertion string) (*FederatedProfile, error) {
	if f == nil {
		return nil, ErrAssertionRejected
	}
	return f(ctx, assertion)
}

// FederationResolver maps external identity assertions onto accounts.
// Verifiers are injected per provider name; nothing registers globally.
type FederationResolver struct {
	providers map[string]AssertionVerifier
	repo      RepositoryManager
	activity  ActivitySink
	logger    Logger
}

// FederationOption configures the resolver.
type FederationOption func(*FederationResolver)

// WithProvider registers an assertion verifier under a provider name.
func WithProvider(name string, verifier AssertionVerifier) FederationOption {
	return func(r *FederationResolver) {
		if name == "" || verifier == nil {
			return
		}
		r.providers[name] = verifier
	}
}

// WithFederationActivitySink sets the sink for federated login events.
func WithFederationActivitySink(sink ActivitySink) FederationOption {
	return func(r *FederationResolver) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithFederationLogger overrides the resolver logger.
func WithFederationLogger(logger Logger) FederationOption {
	return func(r *FederationResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewFederationResolver creates a resolver over the account store.
func NewFederationResolver(repo RepositoryManager, opts ...FederationOption) *FederationResolver {
	r := &FederationResolver{
		providers: make(map[string]AssertionVerifier),
		repo:      repo,
		activity:  noopActivitySink{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// ResolveAssertion verifies a raw provider payload and resolves the
// resulting profile to an account.
func (r *FederationResolver) ResolveAssertion(ctx context.Context, provider, assertion string) (*Account, error) {
	verifier, ok := r.providers[provider]
	if !ok {
		return nil, ErrProviderNotFound
	}

	profile, err := verifier.Verify(ctx, assertion)
	if err != nil {
		r.logger.Error("federation assertion rejected", "provider", provider, "error", err)
		return nil, goerrors.Wrap(err, ErrAssertionRejected.Category, ErrAssertionRejected.Message).
			WithTextCode(ErrAssertionRejected.TextCode)
	}

	if profile == nil || profile.Email == "" {
		return nil, ErrAssertionRejected
	}

	profile.Provider = provider

	return r.Resolve(ctx, profile)
}

// Resolve returns the account for a federated profile. A matching email
// merges into the existing account rather than creating a duplicate;
// otherwise a verified, passwordless client account is created. No
// password is ever requested or stored on this path.
func (r *FederationResolver) Resolve(ctx context.Context, profile *FederatedProfile) (*Account, error) {
	if profile == nil {
		return nil, ErrAssertionRejected
	}

	email := NormalizeEmail(profile.Email)

	account, err := r.repo.Accounts().GetByEmail(ctx, email)
	if err == nil {
		if account.FederatedID == nil || *account.FederatedID == "" {
			if err := r.repo.Accounts().AttachFederatedID(ctx, account.ID, profile.SubjectID); err != nil {
				return nil, err
			}
			fid := profile.SubjectID
			account.FederatedID = &fid
			account.IsVerified = true
		}

		r.recordLogin(ctx, account, profile, false)
		return account, nil
	}

	if !goerrors.Is(err, ErrAccountNotFound) && !goerrors.IsNotFound(err) {
		return nil, err
	}

	fid := profile.SubjectID
	account = &Account{
		Email:       email,
		DisplayName: profile.DisplayName,
		Role:        RoleClient,
		IsVerified:  true,
		FederatedID: &fid,
	}

	if account, err = r.repo.Accounts().CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	r.recordLogin(ctx, account, profile, true)

	return account, nil
}

func (r *FederationResolver) recordLogin(ctx context.Context, account *Account, profile *FederatedProfile, isNew bool) {
	event := ActivityEvent{
		EventType: ActivityEventFederatedLogin,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"provider":    profile.Provider,
			"new_account": isNew,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(r.activity).Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error during federated login: %v", err)
	}
}
