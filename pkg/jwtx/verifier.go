package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrWrongTokenType = errors.New("jwtx: wrong token type")
	ErrWeakSecret     = errors.New("jwtx: secret shorter than 32 bytes")
)

// HS256Verifier checks HMAC-SHA256 signatures against a shared secret.
type HS256Verifier struct {
	secret []byte
	now    func() time.Time
}

func newHS256Verifier(secret []byte, now func() time.Time) *HS256Verifier {
	return &HS256Verifier{secret: secret, now: now}
}

// Verify validates the JWT string and returns its parsed Claims. Expiry is
// inclusive: a token presented at exactly its exp instant is expired.
func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}
