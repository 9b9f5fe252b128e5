package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MinPasswordLength is the floor applied to new passwords.
var MinPasswordLength = 6

type ForgotPasswordMessage struct {
	Email string `json:"email"`
}

func (e ForgotPasswordMessage) Type() string { return "account.password_reset.request" }

// Validate will run validation rules
func (e ForgotPasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type ForgotPasswordHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewForgotPasswordHandler creates a handler with sane defaults.
func NewForgotPasswordHandler(repo RepositoryManager, notifier Notifier) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{
		repo:     repo,
		notifier: notifier,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit reset request events.
func (h *ForgotPasswordHandler) WithActivitySink(sink ActivitySink) *ForgotPasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ForgotPasswordHandler) WithLogger(logger Logger) *ForgotPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute issues a reset token when the account exists. An unknown email
// is a silent success; the response never reveals whether the address is
// registered.
func (h *ForgotPasswordHandler) execute(ctx context.Context, event ForgotPasswordMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset request payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.Is(err, ErrAccountNotFound) || goerrors.IsNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	secret, err := h.repo.Tokens().Issue(ctx, account.ID, PurposePasswordReset)
	if err != nil {
		return err
	}

	if err := h.notifier.SendPasswordReset(ctx, account, secret); err != nil {
		h.logger.Warn("reset delivery failed: %v", err)
	}

	h.recordActivity(ctx, ActivityEventPasswordResetRequest, account.ID)

	return nil
}

func (h *ForgotPasswordHandler) recordActivity(ctx context.Context, eventType ActivityEventType, accountID uuid.UUID) {
	event := ActivityEvent{
		EventType: eventType,
		Actor: ActorRef{
			ID:   accountID.String(),
			Type: "account",
		},
		AccountID:  accountID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}

type ResetPasswordMessage struct {
	AccountID   string `json:"account_id"`
	Secret      string `json:"secret"`
	NewPassword string `json:"new_password"`
}

func (e ResetPasswordMessage) Type() string { return "account.password_reset.finalize" }

type ResetPasswordHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewResetPasswordHandler creates a handler with sane defaults.
func NewResetPasswordHandler(repo RepositoryManager) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *ResetPasswordHandler) WithActivitySink(sink ActivitySink) *ResetPasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute consumes the reset token and replaces the password. The token
// is scoped to the issuing account: a valid secret presented with a
// different account id fails. Existing sessions stay valid until expiry;
// stateless assertions cannot be revoked without a denylist.
func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	if len(event.NewPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	accountID, err := uuid.Parse(event.AccountID)
	if err != nil {
		return ErrTokenInvalidOrExpired
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Tokens().ConsumeTx(ctx, tx, accountID, event.Secret, PurposePasswordReset); err != nil {
			return err
		}

		return h.repo.Accounts().ResetPasswordTx(ctx, tx, accountID, passwordHash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, accountID)

	return nil
}

func (h *ResetPasswordHandler) recordActivity(ctx context.Context, accountID uuid.UUID) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor: ActorRef{
			ID:   accountID.String(),
			Type: "account",
		},
		AccountID:  accountID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
