package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid auth token")

// ErrTokenExpired is returned together with the claims of an authentic but
// expired token.
var ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

const defaultIssuer = "bitlend"

// JWTStrategy issues and verifies HS256 signed session tokens.
type JWTStrategy struct {
	secret []byte
	issuer string
}

// NewJWTStrategy builds JWTStrategy with provided secret and options.
func NewJWTStrategy(secret string, opts Options) *JWTStrategy {
	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTStrategy{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs claims into a compact JWT.
func (s *JWTStrategy) IssueToken(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   claims.UserID.String(),
		ID:        claims.SessionID.String(),
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, issuer and expiry and returns the claims.
func (s *JWTStrategy) ParseToken(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())

	expired := false
	switch {
	case err == nil && parsed.Valid:
	case onlyExpired(err):
		expired = true
	default:
		return Claims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(rc.Subject)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	sessionID, err := uuid.Parse(rc.ID)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{UserID: userID, SessionID: sessionID, ExpiresAt: rc.ExpiresAt.Time}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if expired {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// signature is verified before claims, so an expiry error implies authenticity
func onlyExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired) &&
		!errors.Is(err, jwt.ErrTokenSignatureInvalid) &&
		!errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenNotValidYet)
}

func (s *JWTStrategy) Name() string {
	return "jwt"
}
