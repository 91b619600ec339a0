/*
Package jwt signs and verifies HS256 channel access tokens.
*/
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// DefaultIssuer is used when no issuer name is configured.
const DefaultIssuer = "callrelay"

// GenerateToken signs payload, stamping iat=now and exp=now+ttl.
func GenerateToken(payload *Payload, secretKey, issuer string, now time.Time, ttl time.Duration) (string, error) {
	if secretKey == "" {
		return "", errors.New("signing secret is empty")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(ttl).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    issuer,
		Subject:   payload.Channel,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}
