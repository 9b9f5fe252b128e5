package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const tokenSecretBytes = 32

// Tokens persists single-use, time-limited opaque secrets. Tokens are
// consumed by a conditional delete so two concurrent consumers of the
// same secret can never both succeed.
type Tokens interface {
	Issue(ctx context.Context, accountID uuid.UUID, purpose TokenPurpose) (string, error)
	IssueTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, purpose TokenPurpose) (string, error)

	Consume(ctx context.Context, accountID uuid.UUID, secret string, purpose TokenPurpose) error
	ConsumeTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, secret string, purpose TokenPurpose) error

	PurgeExpired(ctx context.Context) (int64, error)
}

type tokens struct {
	db  *bun.DB
	now func() time.Time
}

var _ Tokens = (*tokens)(nil)

type TokensOption func(*tokens)

// WithTokensClock overrides the clock, used by expiry tests.
func WithTokensClock(now func() time.Time) TokensOption {
	return func(t *tokens) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTokensRepository(db *bun.DB, opts ...TokensOption) Tokens {
	repo := &tokens{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (r *tokens) Issue(ctx context.Context, accountID uuid.UUID, purpose TokenPurpose) (string, error) {
	return r.IssueTx(ctx, r.db, accountID, purpose)
}

// IssueTx generates a fresh 256-bit secret, persists it with the
// purpose TTL, and returns it for out-of-band delivery. The secret is
// never readable again through this interface.
func (r *tokens) IssueTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, purpose TokenPurpose) (string, error) {
	secret, err := newTokenSecret()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token secret")
	}

	now := r.now()
	record := &Token{
		ID:        uuid.New(),
		AccountID: accountID,
		Secret:    secret,
		Purpose:   purpose,
		ExpiresAt: now.Add(PurposeTTL(purpose)),
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return "", goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	return secret, nil
}

func (r *tokens) Consume(ctx context.Context, accountID uuid.UUID, secret string, purpose TokenPurpose) error {
	return r.ConsumeTx(ctx, r.db, accountID, secret, purpose)
}

// ConsumeTx atomically looks up and deletes a matching, unexpired token.
// A single conditional DELETE keeps lookup and consumption in one store
// operation; unknown, consumed, expired, and wrong-account secrets all
// fail with the same error.
func (r *tokens) ConsumeTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, secret string, purpose TokenPurpose) error {
	if secret == "" {
		return ErrTokenInvalidOrExpired
	}

	res, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("account_id = ?", accountID).
		Where("secret = ?", secret).
		Where("purpose = ?", purpose).
		Where("expires_at > ?", r.now()).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	if rows == 0 {
		return ErrTokenInvalidOrExpired
	}

	return nil
}

// PurgeExpired garbage-collects tokens past their expiry.
func (r *tokens) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*Token)(nil)).
		Where("expires_at <= ?", r.now()).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	return res.RowsAffected()
}

func newTokenSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
