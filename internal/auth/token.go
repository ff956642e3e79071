package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies the session cookie token.
//
// SESSION TOKEN SCHEME:
// The cookie value is a signed JWT whose `jti` claim is the ID of a row in
// the sessions table. The JWT gives us tamper-proofing and an expiry check
// without a DB hit; the sessions row gives us server-side revocation.
// A token is only good while BOTH hold: the signature verifies and the
// jti still has a live row. Logout deletes the row, so a stolen-but-valid
// cookie dies with the session.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a TokenCodec. The secret should be at least 32
// bytes of random data in production (openssl rand -hex 32).
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session TTL must be positive")
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured session lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Encode signs a token for the given session ID and user ID. The session
// ID goes in `jti`, the user ID in `sub` — the token carries exactly the
// one claim the Session row holds, plus the row's key.
func (c *TokenCodec) Encode(sessionID string, userID int64) (string, error) {
	now := time.Now()

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Issuer:    "microblog",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token string and returns the session ID from `jti`.
//
// jwt.WithValidMethods pins the algorithm to HS256 — without it a crafted
// token could name a different algorithm and sidestep the signature check.
func (c *TokenCodec) Decode(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("microblog"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: session token expired")
		}
		return "", fmt.Errorf("auth: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid session token claims")
	}
	if claims.ID == "" {
		return "", fmt.Errorf("auth: session token has no id")
	}
	return claims.ID, nil
}
