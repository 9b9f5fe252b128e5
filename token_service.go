package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionCodecImpl implements the SessionCodec interface
type SessionCodecImpl struct {
	signingKey []byte
	sessionTTL time.Duration
	issuer     string
	logger     Logger
}

// NewSessionCodec creates a new SessionCodec instance
func NewSessionCodec(signingKey []byte, sessionTTL time.Duration, issuer string, logger Logger) SessionCodec {
	if logger == nil {
		logger = defLogger{}
	}
	if sessionTTL <= 0 {
		sessionTTL = SessionTTL
	}
	return &SessionCodecImpl{
		signingKey: signingKey,
		sessionTTL: sessionTTL,
		issuer:     issuer,
		logger:     logger,
	}
}

// IssueSession signs a session assertion carrying the identity claims
func (sc *SessionCodecImpl) IssueSession(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sc.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sc.sessionTTL)),
		},
		UID:         identity.ID(),
		AccountRole: identity.Role(),
		Email:       identity.Email(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return sc.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the configured signing key.
func (sc *SessionCodecImpl) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(sc.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session assertion")
	}

	return signedString, nil
}

// VerifySession parses and validates an assertion, returning structured
// claims. Integrity is checked before expiry; failures are typed so the
// guard can distinguish tampering from a stale session.
func (sc *SessionCodecImpl) VerifySession(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if sc.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(sc.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			sc.logger.Error("SessionCodec verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return sc.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSessionSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrSessionExpired
		default:
			return nil, errors.Wrap(err, ErrSessionMalformed.Category, ErrSessionMalformed.Message).
				WithTextCode(ErrSessionMalformed.TextCode)
		}
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	sc.logger.Error("SessionCodec verify could not decode or validate claims")
	return nil, ErrSessionMalformed
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
