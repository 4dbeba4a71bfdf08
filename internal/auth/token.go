// Package auth issues and verifies the signed bearer tokens that gate
// every realtime and HTTP operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

// CookieName is the httpOnly cookie the login endpoint sets and the
// handshake falls back to when no explicit token is supplied.
const CookieName = "token"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrExpired           = errors.New("token expired")
	ErrUnknownUser       = errors.New("unknown user")
)

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Issue(userID domain.UserID) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier authenticates a bearer credential against the user store.
type Verifier struct {
	secret []byte
	users  store.Users
}

func NewVerifier(secret string, users store.Users) *Verifier {
	return &Verifier{secret: []byte(secret), users: users}
}

// CredentialFromRequest extracts the token with the documented
// precedence: explicit token in the handshake payload (query), then the
// Authorization bearer header, then the named cookie.
func CredentialFromRequest(r *http.Request) (string, error) {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if tok := strings.TrimPrefix(h, "Bearer "); tok != h && tok != "" {
			return tok, nil
		}
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrMissingCredential
}

// Verify checks the token signature and expiry, then resolves the
// subject against the user store.
func (v *Verifier) Verify(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}
	tok, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidSignature
	}
	user, err := v.users.GetByID(ctx, domain.UserID(claims.Subject))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Authenticate runs the full handshake check for an incoming request.
func (v *Verifier) Authenticate(ctx context.Context, r *http.Request) (*domain.User, error) {
	cred, err := CredentialFromRequest(r)
	if err != nil {
		return nil, err
	}
	return v.Verify(ctx, cred)
}
