package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a channel access token.
type Payload struct {
	// StandardClaims carries exp, iat, iss and sub (the channel name).
	jwt.StandardClaims

	// Channel is the media channel the holder may enter.
	Channel string `json:"chn"`

	// UID is the numeric media user id bound to the token; 0 lets the media
	// service assign one.
	UID uint32 `json:"uid"`

	// Role is "publisher" or "subscriber".
	Role string `json:"role"`
}
