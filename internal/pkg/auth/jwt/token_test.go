package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

// parseToken verifies an HS256 token the way the media service does.
func parseToken(tokenString, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func TestGenerateAndParse(t *testing.T) {
	now := time.Now()
	tok, err := GenerateToken(&Payload{Channel: "r1", UID: 7, Role: "publisher"}, "s3cret", "", now, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := parseToken(tok, "s3cret")
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if claims.Channel != "r1" || claims.UID != 7 || claims.Role != "publisher" {
		t.Fatalf("claims: got %+v", claims)
	}
	if claims.Issuer != DefaultIssuer {
		t.Fatalf("Issuer: got %q, want %q", claims.Issuer, DefaultIssuer)
	}
	if claims.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Fatalf("ExpiresAt: got %d, want %d", claims.ExpiresAt, now.Add(time.Hour).Unix())
	}
}

func TestParseRejectsWrongSecretAndExpired(t *testing.T) {
	now := time.Now()
	tok, err := GenerateToken(&Payload{Channel: "r1"}, "a", "relay", now, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := parseToken(tok, "b"); err == nil {
		t.Fatalf("parseToken with wrong secret should fail")
	}

	expired, err := GenerateToken(&Payload{Channel: "r1"}, "a", "relay", now.Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := parseToken(expired, "a"); err == nil {
		t.Fatalf("parseToken of expired token should fail")
	}
}

func TestGenerateRequiresSecret(t *testing.T) {
	if _, err := GenerateToken(&Payload{Channel: "r1"}, "", "", time.Now(), time.Minute); err == nil {
		t.Fatalf("GenerateToken with empty secret should fail")
	}
}
