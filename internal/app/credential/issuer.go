/*
Package credential mints time-boxed media channel access tokens.

The signaling Manager and the token endpoint see only the Issuer interface, so the
signing backend can be swapped without touching call handling.
*/
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"callrelay/internal/pkg/auth/jwt"
)

// Role is the media permission carried by a token.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

var (
	// ErrChannelRequired is returned when no channel name is given.
	ErrChannelRequired = errors.New("credential: channel name is required")

	// ErrInvalidRole is returned by ParseRole for unknown roles.
	ErrInvalidRole = errors.New("credential: unknown role")
)

// ParseRole maps a request value to a Role; empty means publisher.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "publisher", "1":
		return RolePublisher, nil
	case "subscriber", "2":
		return RoleSubscriber, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Issuer mints an opaque token for channel. Errors are final for the request;
// callers never retry.
type Issuer interface {
	Issue(channel string, uid uint32, role Role, ttl time.Duration) (string, error)
}

// JWTIssuer signs HS256 tokens with a shared secret.
type JWTIssuer struct {
	secret string
	issuer string
	clock  clock.Clock
}

// NewJWTIssuer returns an issuer signing with secret. A nil clk uses wall time.
func NewJWTIssuer(secret, issuer string, clk clock.Clock) *JWTIssuer {
	if clk == nil {
		clk = clock.New()
	}
	return &JWTIssuer{secret: secret, issuer: issuer, clock: clk}
}

// Issue implements Issuer.
func (i *JWTIssuer) Issue(channel string, uid uint32, role Role, ttl time.Duration) (string, error) {
	if channel == "" {
		return "", ErrChannelRequired
	}
	if ttl <= 0 {
		return "", fmt.Errorf("credential: ttl must be positive, got %s", ttl)
	}

	payload := &jwt.Payload{
		Channel: channel,
		UID:     uid,
		Role:    string(role),
	}

	token, err := jwt.GenerateToken(payload, i.secret, i.issuer, i.clock.Now(), ttl)
	if err != nil {
		return "", fmt.Errorf("credential: sign token: %w", err)
	}
	return token, nil
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(channel string, uid uint32, role Role, ttl time.Duration) (string, error)

// Issue implements Issuer.
func (f IssuerFunc) Issue(channel string, uid uint32, role Role, ttl time.Duration) (string, error) {
	return f(channel, uid, role, ttl)
}
