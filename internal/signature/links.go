package signature

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const linkAudience = "signed-document"

var ErrLinkInvalid = errors.New("link invalid or expired")

// Links issues and verifies expiring download tokens for signed documents.
type Links struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLinks(secret string, ttl time.Duration) *Links {
	return &Links{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token granting access to one signed document.
func (l *Links) Issue(signatureID string) (string, time.Time, error) {
	now := l.now()
	expires := now.Add(l.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   signatureID,
		Audience:  jwt.ClaimStrings{linkAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign link: %w", err)
	}
	return signed, expires, nil
}

// Verify checks a token and returns the signature id it grants.
func (l *Links) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(linkAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLinkInvalid, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrLinkInvalid)
	}
	return claims.Subject, nil
}
