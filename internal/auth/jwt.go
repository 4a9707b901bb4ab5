// Package auth issues and validates the HS256 bearer tokens used by the
// API and the streaming proxy, and hashes account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failure reasons. Handlers map both to 401; the message
// distinguishes an expired token from a garbage one.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the token payload: subject (user id) plus the username and
// admin flag needed for authorisation decisions without a DB lookup.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Authenticator signs and verifies tokens with a shared secret.
// Construct one at process start and pass it down; there is no package
// state.
type Authenticator struct {
	secret []byte
	expiry time.Duration
}

// New creates an Authenticator. expiry <= 0 defaults to 24 hours.
func New(secret string, expiry time.Duration) *Authenticator {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), expiry: expiry}
}

// IssueToken creates a signed access token for the given user.
func (a *Authenticator) IssueToken(userID, username string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
		Username: username,
		IsAdmin:  isAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses and verifies a token, returning its claims.
// Returns ErrTokenExpired for an expired-but-otherwise-valid token and
// ErrTokenInvalid for everything else.
func (a *Authenticator) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
