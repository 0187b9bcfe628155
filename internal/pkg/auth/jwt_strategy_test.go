package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newClaims(ttl time.Duration) Claims {
	now := time.Now().Truncate(time.Second)
	return Claims{
		UserID:    uuid.New(),
		SessionID: uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestNewJWTStrategy_DefaultIssuer(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if strategy == nil {
		t.Fatal("expected strategy instance")
	}
	if string(strategy.secret) != "secret" {
		t.Fatalf("unexpected secret: %q", string(strategy.secret))
	}
	if strategy.issuer != defaultIssuer {
		t.Fatalf("unexpected issuer: %s", strategy.issuer)
	}
}

func TestJWTStrategy_IssueAndParse(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	claims := newClaims(time.Minute)
	token, err := strategy.IssueToken(claims)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	got, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if got.UserID != claims.UserID || got.SessionID != claims.SessionID {
		t.Fatalf("unexpected claims: %+v", got)
	}
	if !got.ExpiresAt.Equal(claims.ExpiresAt) || !got.IssuedAt.Equal(claims.IssuedAt) {
		t.Fatalf("unexpected timestamps: %+v", got)
	}
}

func TestJWTStrategy_ParseGarbage(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if _, err := strategy.ParseToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_ParseWrongSecret(t *testing.T) {
	token, err := NewJWTStrategy("secret", Options{}).IssueToken(newClaims(time.Minute))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTStrategy("other", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_ParseWrongIssuer(t *testing.T) {
	token, err := NewJWTStrategy("secret", Options{Issuer: "someone-else"}).IssueToken(newClaims(time.Minute))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTStrategy("secret", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_ParseExpired(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	issued := newClaims(-time.Minute)
	token, err := strategy.IssueToken(issued)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := strategy.ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if claims.SessionID != issued.SessionID {
		t.Fatalf("expected claims of expired token, got %+v", claims)
	}
}

func TestJWTStrategy_ParseExpiredForgery(t *testing.T) {
	token, err := NewJWTStrategy("other", Options{}).IssueToken(newClaims(-time.Minute))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := NewJWTStrategy("secret", Options{}).ParseToken(token)
	if errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected plain ErrInvalidToken, got %v", err)
	}
	if claims != (Claims{}) {
		t.Fatalf("forged token must not yield claims: %+v", claims)
	}
}

func TestJWTStrategy_ParseInvalidSubject(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Subject:   "42",
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	token, err := raw.SignedString(strategy.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsNoneAlgorithm(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Subject:   uuid.NewString(),
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_Name(t *testing.T) {
	if NewJWTStrategy("secret", Options{}).Name() != "jwt" {
		t.Fatal("unexpected strategy name")
	}
}
