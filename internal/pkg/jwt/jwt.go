package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 24 * time.Hour

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"usr"`
	jwtlib.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with one secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer. A non-positive ttl falls back to 24h.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign creates a signed token for the given user.
func (s *Signer) Sign(userID uint, username string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwtlib.NewNumericDate(expires),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse validates a token string and returns the claims.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwtlib.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
