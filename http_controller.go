package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar is the minimal router surface the controller needs.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// IdentityController exposes the identity flows over HTTP. It holds no
// domain logic; every handler binds, validates, and delegates to a flow.
type IdentityController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Auther     *Auther
	Guard      *Guard
	Federation *FederationResolver
	Notifier   Notifier
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Debug = debug
		return c
	}
}

func WithControllerNotifier(notifier Notifier) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Notifier = notifier
		return c
	}
}

func WithControllerFederation(resolver *FederationResolver) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Federation = resolver
		return c
	}
}

func NewIdentityController(repo RepositoryManager, auther *Auther, opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger: defLogger{},
		Repo:   repo,
		Auther: auther,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in identity controller...")
	}

	if c.Guard == nil {
		c.Guard = NewGuard(c.Auther.SessionCodec()).WithLogger(c.Logger)
	}

	c.Notifier = normalizeNotifier(c.Notifier, "", c.Logger)

	return c
}

// RegisterIdentityRoutes mounts the identity endpoints.
func RegisterIdentityRoutes(app RouteRegistrar, c *IdentityController) {
	app.Post("/register", c.Register)
	app.Post("/login", c.Login)
	app.Get("/verify/:accountId/:secret", c.VerifyEmail)
	app.Post("/resend-verification", c.ResendVerification)
	app.Post("/forgot-password", c.ForgotPassword)
	app.Put("/reset-password/:accountId/:secret", c.ResetPassword)
	app.Post("/federated/:provider/callback", c.FederatedCallback)
	app.Get("/profile", c.Profile, c.Protected())
	app.Get("/admin", c.Admin, c.Protected(), c.RequireRole(RoleAdmin))
}

// Protected rejects requests lacking a valid bearer session assertion and
// propagates the verified claims through the request context.
func (a *IdentityController) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			header := ctx.GetString(router.HeaderAuthorization, "")

			claims, err := a.Guard.AuthenticateHeader(header)
			if err != nil {
				return ctx.JSON(router.StatusUnauthorized, map[string]string{
					"message": "invalid or expired token",
				})
			}

			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

// RequireRole enforces role membership after Protected has run.
func (a *IdentityController) RequireRole(roles ...Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetClaims(ctx.Context())
			if !ok || !a.Guard.Authorize(claims, roles...) {
				return ctx.JSON(router.StatusForbidden, map[string]string{
					"message": ErrForbidden.Message,
				})
			}

			return next(ctx)
		}
	}
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *IdentityController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: ", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	register := NewRegisterAccountHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	req := RegisterAccountMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	}

	if err := register.Execute(ctx.Context(), req); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]string{
		"message": "Account registered. Please verify your email.",
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *IdentityController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": ErrInvalidCredentials.Message,
		})
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"token": token,
	})
}

func (a *IdentityController) VerifyEmail(ctx router.Context) error {
	verify := NewVerifyEmailHandler(a.Repo).WithLogger(a.Logger)
	req := VerifyEmailMessage{
		AccountID: ctx.Param("accountId"),
		Secret:    ctx.Param("secret"),
	}

	if err := verify.Execute(ctx.Context(), req); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.Status(router.StatusOK).
		SendString("<h2>Email verified. You can now sign in.</h2>")
}

// EmailRequest payload shared by resend and forgot flows
type EmailRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) ResendVerification(ctx router.Context) error {
	payload := new(EmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": err.Error(),
		})
	}

	resend := NewResendVerificationHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := resend.Execute(ctx.Context(), ResendVerificationMessage{Email: payload.Email}); err != nil {
		return a.respondError(ctx, err)
	}

	// generic response regardless of account state
	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "If the account requires verification, an email has been sent.",
	})
}

func (a *IdentityController) ForgotPassword(ctx router.Context) error {
	payload := new(EmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": err.Error(),
		})
	}

	forgot := NewForgotPasswordHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := forgot.Execute(ctx.Context(), ForgotPasswordMessage{Email: payload.Email}); err != nil {
		return a.respondError(ctx, err)
	}

	// generic response: never reveals whether the email exists
	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "If the account exists, a reset email has been sent.",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password string `form:"password" json:"password"`
}

func (a *IdentityController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	reset := NewResetPasswordHandler(a.Repo).WithLogger(a.Logger)
	req := ResetPasswordMessage{
		AccountID:   ctx.Param("accountId"),
		Secret:      ctx.Param("secret"),
		NewPassword: payload.Password,
	}

	if err := reset.Execute(ctx.Context(), req); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "Password updated. You can now sign in.",
	})
}

// FederatedCallbackRequest payload
type FederatedCallbackRequest struct {
	Assertion string `form:"assertion" json:"assertion"`
}

func (a *IdentityController) FederatedCallback(ctx router.Context) error {
	if a.Federation == nil {
		return ctx.JSON(router.StatusNotFound, map[string]string{
			"message": ErrProviderNotFound.Message,
		})
	}

	payload := new(FederatedCallbackRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"message": "failed to parse body",
		})
	}

	account, err := a.Federation.ResolveAssertion(ctx.Context(), ctx.Param("provider"), payload.Assertion)
	if err != nil {
		a.Logger.Error("federated callback error: ", "error", err)
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"message": ErrAssertionRejected.Message,
		})
	}

	token, err := a.Auther.SessionCodec().IssueSession(NewIdentityFromAccount(account))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"token": token,
	})
}

func (a *IdentityController) Profile(ctx router.Context) error {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"message": "invalid or expired token",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Welcome!",
		"account": map[string]string{
			"id":    claims.AccountID(),
			"email": claims.Email,
			"role":  string(claims.Role()),
		},
	})
}

func (a *IdentityController) Admin(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "Hello Admin",
	})
}

func (a *IdentityController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return ctx.JSON(richErr.Code, map[string]string{
			"message": richErr.Message,
		})
	}

	a.Logger.Error("identity controller error: ", "error", err)

	return ctx.JSON(router.StatusInternalServerError, map[string]string{
		"message": "server error",
	})
}
