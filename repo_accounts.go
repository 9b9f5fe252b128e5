package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."id" = ?
RETURNING *;`

// Accounts is the account repository contract consumed by the flows.
// Email uniqueness is enforced here; violations surface as ErrEmailTaken,
// never as a generic store failure.
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	CreateAccount(ctx context.Context, record *Account) (*Account, error)
	CreateAccountTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	MarkVerified(ctx context.Context, id uuid.UUID) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	AttachFederatedID(ctx context.Context, id uuid.UUID, federatedID string) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (r *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}
	return record, nil
}

func (r *accounts) CreateAccount(ctx context.Context, record *Account) (*Account, error) {
	return r.CreateAccountTx(ctx, r.db, record)
}

// CreateAccountTx persists a new account. The email is normalized at this
// boundary and the unique index is the source of truth for conflicts, so
// two concurrent registrations cannot both win.
func (r *accounts) CreateAccountTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	if record == nil {
		return nil, goerrors.New("account record must not be nil", goerrors.CategoryBadInput)
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureRole()

	if !record.HasCredential() {
		return nil, ErrCredentialsRequired
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	return record, nil
}

func (r *accounts) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.MarkVerifiedTx(ctx, r.db, id)
}

func (r *accounts) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("is_verified = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *accounts) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.ResetPasswordTx(ctx, r.db, id, passwordHash)
}

func (r *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.ExecContext(ctx, ResetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// AttachFederatedID links a provider identity to an account. A no-op when
// the account already carries a federated id; the first linkage wins.
func (r *accounts) AttachFederatedID(ctx context.Context, id uuid.UUID, federatedID string) error {
	_, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("federated_id = ?", federatedID).
		Set("is_verified = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Where("federated_id IS NULL").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	return nil
}
