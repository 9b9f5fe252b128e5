package identity

import "strings"

// BearerScheme is the expected authorization scheme on protected requests.
const BearerScheme = "Bearer"

// Guard verifies session assertions and enforces role membership on
// protected operations.
type Guard struct {
	codec  SessionCodec
	logger Logger
}

// NewGuard creates a guard over a session codec.
func NewGuard(codec SessionCodec) *Guard {
	return &Guard{
		codec:  codec,
		logger: defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Authenticate verifies a raw session assertion and returns its claims.
// The distinct signature/expiry/malformed sub-causes are logged for
// operators but the caller-facing outcome stays undifferentiated.
func (g *Guard) Authenticate(rawToken string) (*SessionClaims, error) {
	if rawToken == "" {
		return nil, ErrSessionMalformed
	}

	claims, err := g.codec.VerifySession(rawToken)
	if err != nil {
		switch {
		case IsSessionSignatureError(err):
			g.logger.Warn("session assertion rejected: signature", "error", err)
		case IsSessionExpiredError(err):
			g.logger.Debug("session assertion rejected: expired", "error", err)
		default:
			g.logger.Debug("session assertion rejected: malformed", "error", err)
		}
		return nil, err
	}

	return claims, nil
}

// AuthenticateHeader extracts a bearer token from an Authorization header
// value and authenticates it.
func (g *Guard) AuthenticateHeader(header string) (*SessionClaims, error) {
	raw, ok := ParseBearerToken(header)
	if !ok {
		return nil, ErrSessionMalformed
	}
	return g.Authenticate(raw)
}

// Authorize is a pure membership check: true when the session role is in
// the allowed set. No side effects; the caller decides what denial means.
func (g *Guard) Authorize(claims *SessionClaims, allowedRoles ...Role) bool {
	if claims == nil {
		return false
	}
	return RoleIn(claims.Role(), allowedRoles...)
}

// ParseBearerToken splits "Bearer <token>" and reports whether the header
// carried a usable token.
func ParseBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], BearerScheme) {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
