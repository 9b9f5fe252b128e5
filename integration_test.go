package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	repo     identity.RepositoryManager
	notifier *captureNotifier
	sink     *captureSink
	auther   *identity.Auther
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	repo := setupTestRepo(t)
	provider := identity.NewAccountProvider(repo.Accounts()).WithLogger(testLogger{})
	sink := &captureSink{}

	auther := identity.NewAuthenticator(provider, identity.StaticConfig{
		SigningKey: "integration-test-key",
		SessionTTL: time.Hour,
		Issuer:     "go-identity-test",
	}).WithLogger(testLogger{}).WithActivitySink(sink)

	return &testHarness{
		repo:     repo,
		notifier: &captureNotifier{},
		sink:     sink,
		auther:   auther,
	}
}

func (h *testHarness) register(t *testing.T, name, email, password string) *identity.Account {
	t.Helper()

	var account *identity.Account
	handler := identity.NewRegisterAccountHandler(h.repo, h.notifier).
		WithLogger(testLogger{}).
		WithActivitySink(h.sink)

	err := handler.Execute(context.Background(), identity.RegisterAccountMessage{
		Name:     name,
		Email:    email,
		Password: password,
		OnResponse: func(resp *identity.RegisterAccountResponse) {
			account = resp.Account
		},
	})
	require.NoError(t, err)
	require.NotNil(t, account)
	return account
}

func TestRegistrationAndLoginLifecycle(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	account := h.register(t, "Life Cycle", "lifecycle@example.com", "secret123")

	delivery, ok := h.notifier.LastVerification()
	require.True(t, ok, "registration must deliver a verification secret")
	require.NotEmpty(t, delivery.Secret)
	assert.Equal(t, account.ID, delivery.Account.ID)

	t.Run("login before verification is rejected", func(t *testing.T) {
		_, err := h.auther.Login(ctx, "lifecycle@example.com", "secret123")
		assert.ErrorIs(t, err, identity.ErrAccountUnverified)
	})

	t.Run("verification consumes the token", func(t *testing.T) {
		verify := identity.NewVerifyEmailHandler(h.repo).WithLogger(testLogger{}).WithActivitySink(h.sink)

		err := verify.Execute(ctx, identity.VerifyEmailMessage{
			AccountID: account.ID.String(),
			Secret:    delivery.Secret,
		})
		require.NoError(t, err)

		stored, err := h.repo.Accounts().GetByEmail(ctx, account.Email)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified)

		// replay of a consumed secret fails like an unknown one
		err = verify.Execute(ctx, identity.VerifyEmailMessage{
			AccountID: account.ID.String(),
			Secret:    delivery.Secret,
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})

	t.Run("login after verification issues a session", func(t *testing.T) {
		token, err := h.auther.Login(ctx, "lifecycle@example.com", "secret123")
		require.NoError(t, err)

		claims, err := h.auther.SessionFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, account.ID.String(), claims.AccountID())
		assert.Equal(t, identity.RoleClient, claims.Role())
	})

	t.Run("duplicate registration is a conflict", func(t *testing.T) {
		handler := identity.NewRegisterAccountHandler(h.repo, h.notifier).WithLogger(testLogger{})
		err := handler.Execute(ctx, identity.RegisterAccountMessage{
			Email:    "Lifecycle@Example.com",
			Password: "other6789",
		})
		assert.ErrorIs(t, err, identity.ErrEmailTaken)
	})
}

func TestVerifyEmailHandler_MalformedMessage(t *testing.T) {
	h := newTestHarness(t)
	verify := identity.NewVerifyEmailHandler(h.repo).WithLogger(testLogger{})
	ctx := context.Background()

	account := h.register(t, "Mangled Link", "mangled@example.com", "secret123")

	t.Run("empty secret fails like a spent one", func(t *testing.T) {
		err := verify.Execute(ctx, identity.VerifyEmailMessage{
			AccountID: account.ID.String(),
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})

	t.Run("mangled account id fails like a spent one", func(t *testing.T) {
		err := verify.Execute(ctx, identity.VerifyEmailMessage{
			AccountID: "not-a-uuid",
			Secret:    "whatever",
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})

	t.Run("account stays unverified", func(t *testing.T) {
		stored, err := h.repo.Accounts().GetByEmail(ctx, account.Email)
		require.NoError(t, err)
		assert.False(t, stored.IsVerified)
	})
}

func TestRegisterAccountHandler_Validation(t *testing.T) {
	h := newTestHarness(t)
	handler := identity.NewRegisterAccountHandler(h.repo, h.notifier).WithLogger(testLogger{})
	ctx := context.Background()

	t.Run("rejects malformed email", func(t *testing.T) {
		err := handler.Execute(ctx, identity.RegisterAccountMessage{
			Email:    "not-an-email",
			Password: "secret123",
		})
		assert.Error(t, err)
	})

	t.Run("rejects short password", func(t *testing.T) {
		err := handler.Execute(ctx, identity.RegisterAccountMessage{
			Email:    "short@example.com",
			Password: "12345",
		})
		assert.Error(t, err)
	})

	t.Run("failed registration leaves no account behind", func(t *testing.T) {
		_, err := h.repo.Accounts().GetByEmail(ctx, "short@example.com")
		assert.ErrorIs(t, err, identity.ErrAccountNotFound)
	})
}

func TestResendVerification(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	account := h.register(t, "Pending", "pending@example.com", "secret123")
	handler := identity.NewResendVerificationHandler(h.repo, h.notifier).WithLogger(testLogger{})

	t.Run("issues a fresh secret for a pending account", func(t *testing.T) {
		first, _ := h.notifier.LastVerification()

		err := handler.Execute(ctx, identity.ResendVerificationMessage{Email: "pending@example.com"})
		require.NoError(t, err)

		second, ok := h.notifier.LastVerification()
		require.True(t, ok)
		assert.NotEqual(t, first.Secret, second.Secret)
		assert.Equal(t, account.ID, second.Account.ID)
	})

	t.Run("unknown email is a silent success", func(t *testing.T) {
		sent := len(h.notifier.Verifications)

		err := handler.Execute(ctx, identity.ResendVerificationMessage{Email: "ghost@example.com"})
		assert.NoError(t, err)
		assert.Len(t, h.notifier.Verifications, sent)
	})

	t.Run("verified account is a silent success", func(t *testing.T) {
		require.NoError(t, h.repo.Accounts().MarkVerified(ctx, account.ID))
		sent := len(h.notifier.Verifications)

		err := handler.Execute(ctx, identity.ResendVerificationMessage{Email: "pending@example.com"})
		assert.NoError(t, err)
		assert.Len(t, h.notifier.Verifications, sent)
	})
}

func TestPasswordResetLifecycle(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	account := h.register(t, "Reset Me", "resetme@example.com", "oldpass123")
	require.NoError(t, h.repo.Accounts().MarkVerified(ctx, account.ID))

	forgot := identity.NewForgotPasswordHandler(h.repo, h.notifier).
		WithLogger(testLogger{}).
		WithActivitySink(h.sink)
	reset := identity.NewResetPasswordHandler(h.repo).
		WithLogger(testLogger{}).
		WithActivitySink(h.sink)

	t.Run("unknown email request is a silent success", func(t *testing.T) {
		err := forgot.Execute(ctx, identity.ForgotPasswordMessage{Email: "ghost@example.com"})
		assert.NoError(t, err)
		assert.Empty(t, h.notifier.Resets)
	})

	err := forgot.Execute(ctx, identity.ForgotPasswordMessage{Email: "resetme@example.com"})
	require.NoError(t, err)

	delivery, ok := h.notifier.LastReset()
	require.True(t, ok)
	require.NotEmpty(t, delivery.Secret)

	t.Run("weak replacement password is rejected without spending the token", func(t *testing.T) {
		err := reset.Execute(ctx, identity.ResetPasswordMessage{
			AccountID:   account.ID.String(),
			Secret:      delivery.Secret,
			NewPassword: "short",
		})
		assert.ErrorIs(t, err, identity.ErrWeakPassword)
	})

	t.Run("reset replaces the password exactly once", func(t *testing.T) {
		err := reset.Execute(ctx, identity.ResetPasswordMessage{
			AccountID:   account.ID.String(),
			Secret:      delivery.Secret,
			NewPassword: "newpass456",
		})
		require.NoError(t, err)

		// old password no longer works, new one does
		_, err = h.auther.Login(ctx, "resetme@example.com", "oldpass123")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

		token, err := h.auther.Login(ctx, "resetme@example.com", "newpass456")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		// the secret is single use
		err = reset.Execute(ctx, identity.ResetPasswordMessage{
			AccountID:   account.ID.String(),
			Secret:      delivery.Secret,
			NewPassword: "another789",
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})

	t.Run("reset secret is scoped to the issuing account", func(t *testing.T) {
		other := h.register(t, "Other", "other@example.com", "secret123")

		err := forgot.Execute(ctx, identity.ForgotPasswordMessage{Email: "resetme@example.com"})
		require.NoError(t, err)
		delivery, ok := h.notifier.LastReset()
		require.True(t, ok)

		err = reset.Execute(ctx, identity.ResetPasswordMessage{
			AccountID:   other.ID.String(),
			Secret:      delivery.Secret,
			NewPassword: "hijacked99",
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})

	t.Run("malformed account id reads as an invalid token", func(t *testing.T) {
		err := reset.Execute(ctx, identity.ResetPasswordMessage{
			AccountID:   "not-a-uuid",
			Secret:      delivery.Secret,
			NewPassword: "newpass456",
		})
		assert.ErrorIs(t, err, identity.ErrTokenInvalidOrExpired)
	})
}
