// Package token issues and verifies the HS256 access and refresh tokens used
// by the API. Access tokens are short-lived; refresh tokens are long-lived
// and persisted against the user row, so a single refresh token is valid per
// user at any time.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned when a token fails signature or
	// structural validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrWrongTokenType is returned when an access token is presented
	// where a refresh token is expected, or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims are the registered claims plus the token type and user email.
type Claims struct {
	TokenType string `json:"type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies tokens with a shared HMAC key.
type Issuer struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates an Issuer. Algorithm must be one of HS256, HS384, HS512.
func NewIssuer(secret string, algorithm string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}

	return &Issuer{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccess creates an access token for a user.
func (i *Issuer) IssueAccess(userID uint, email string) (string, error) {
	return i.issue(userID, email, TypeAccess, i.accessTTL)
}

// IssueRefresh creates a refresh token for a user.
func (i *Issuer) IssueRefresh(userID uint, email string) (string, error) {
	return i.issue(userID, email, TypeRefresh, i.refreshTTL)
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) issue(userID uint, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: tokenType,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// Verify parses a token and checks its signature, expiry and type.
func (i *Issuer) Verify(tokenStr string, tokenType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// UserID extracts the numeric user id from the subject claim.
func (c *Claims) UserID() (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}
