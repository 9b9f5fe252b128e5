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

type VerifyEmailMessage struct {
	AccountID string `json:"account_id"`
	Secret    string `json:"secret"`
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

// Validate will run validation rules
func (e VerifyEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.AccountID, validation.Required, is.UUID),
		validation.Field(&e.Secret, validation.Required),
	)
}

type VerifyEmailHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewVerifyEmailHandler creates a handler with sane defaults.
func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

// execute consumes the verification token and flips the account to
// verified. Consumption is the terminal transition: a replay of the same
// secret fails identically to an unknown one.
func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	// a malformed link is indistinguishable from a spent one
	if err := event.Validate(); err != nil {
		return ErrTokenInvalidOrExpired
	}

	accountID, err := uuid.Parse(event.AccountID)
	if err != nil {
		return ErrTokenInvalidOrExpired
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Tokens().ConsumeTx(ctx, tx, accountID, event.Secret, PurposeEmailVerification); err != nil {
			return err
		}

		return h.repo.Accounts().MarkVerifiedTx(ctx, tx, accountID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify email")
	}

	h.recordActivity(ctx, accountID)

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, accountID uuid.UUID) {
	event := ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor: ActorRef{
			ID:   accountID.String(),
			Type: "account",
		},
		AccountID:  accountID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email verification: %v", err)
	}
}

type ResendVerificationMessage struct {
	Email string `json:"email"`
}

func (e ResendVerificationMessage) Type() string { return "account.resend_verification" }

// Validate will run validation rules
func (e ResendVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type ResendVerificationHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

// NewResendVerificationHandler creates a handler with sane defaults.
func NewResendVerificationHandler(repo RepositoryManager, notifier Notifier) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification resend")
	default:
		return h.execute(ctx, event)
	}
}

// execute issues a fresh verification token. Unknown and already
// verified emails are silent successes so the endpoint cannot be used to
// probe which addresses are registered.
func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid resend payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.Is(err, ErrAccountNotFound) || goerrors.IsNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification resend")
	}

	if account.IsVerified {
		return nil
	}

	secret, err := h.repo.Tokens().Issue(ctx, account.ID, PurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := h.notifier.SendVerification(ctx, account, secret); err != nil {
		h.logger.Warn("verification delivery failed: %v", err)
	}

	return nil
}
