/*
Package configs loads the relay's settings from environment variables.

Values are read through viper with defaults for every key, then validated and
converted into an AppConfig.
*/
package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig contains every setting the relay needs at runtime.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Credential Issuer Settings
	TokenSecret     string
	TokenIssuer     string
	TokenDefaultTTL time.Duration
	TokenMaxTTL     time.Duration

	// Call Settings
	CallDefaultDuration  time.Duration
	CallMaxDuration      time.Duration
	EndCallsOnDisconnect bool

	// Call-duration history; empty keeps records in memory.
	DatabaseDSN string
}

// IsDevelopment reports whether the relay runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

const devTokenSecret = "insecure-development-token-secret"

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", 8080)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "callrelay")
	v.SetDefault("TOKEN_DEFAULT_TTL", 3600)
	v.SetDefault("TOKEN_MAX_TTL", 86400)
	v.SetDefault("CALL_DEFAULT_DURATION", 3600)
	v.SetDefault("CALL_MAX_DURATION", 14400)
	v.SetDefault("END_CALLS_ON_DISCONNECT", true)
	v.SetDefault("DATABASE_URL", "")

	return v
}

// LoadConfig reads, defaults and validates the configuration.
func LoadConfig() (*AppConfig, error) {
	v := newViper()

	cfg := &AppConfig{
		Environment:          v.GetString("ENVIRONMENT"),
		Port:                 v.GetInt("PORT"),
		TokenSecret:          v.GetString("TOKEN_SECRET"),
		TokenIssuer:          v.GetString("TOKEN_ISSUER"),
		EndCallsOnDisconnect: v.GetBool("END_CALLS_ON_DISCONNECT"),
		DatabaseDSN:          v.GetString("DATABASE_URL"),
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (1024-65535)", cfg.Port)
	}

	cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))

	if cfg.TokenSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("TOKEN_SECRET environment variable is required in %s environment", cfg.Environment)
		}
		cfg.TokenSecret = devTokenSecret
	}

	var err error
	if cfg.TokenDefaultTTL, err = seconds(v, "TOKEN_DEFAULT_TTL"); err != nil {
		return nil, err
	}
	if cfg.TokenMaxTTL, err = seconds(v, "TOKEN_MAX_TTL"); err != nil {
		return nil, err
	}
	if cfg.CallDefaultDuration, err = seconds(v, "CALL_DEFAULT_DURATION"); err != nil {
		return nil, err
	}
	if cfg.CallMaxDuration, err = seconds(v, "CALL_MAX_DURATION"); err != nil {
		return nil, err
	}

	if cfg.TokenDefaultTTL > cfg.TokenMaxTTL {
		return nil, fmt.Errorf("TOKEN_DEFAULT_TTL (%s) exceeds TOKEN_MAX_TTL (%s)", cfg.TokenDefaultTTL, cfg.TokenMaxTTL)
	}
	if cfg.CallDefaultDuration > cfg.CallMaxDuration {
		return nil, fmt.Errorf("CALL_DEFAULT_DURATION (%s) exceeds CALL_MAX_DURATION (%s)", cfg.CallDefaultDuration, cfg.CallMaxDuration)
	}

	return cfg, nil
}

// seconds reads a strictly positive whole number of seconds.
func seconds(v *viper.Viper, key string) (time.Duration, error) {
	n := v.GetInt(key)
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, v.GetString(key))
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
