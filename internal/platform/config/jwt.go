package config

import "time"

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func defaultJWTConfig() JWTConfig {
	return JWTConfig{
		ClockSkew: 30 * time.Second,
		// Refresh periodically to pick up key rotation even if an old key is still cached.
		JWKSRefreshInterval: 5 * time.Minute,
		// Bound refresh frequency when a token presents an unknown kid (avoid thundering herd).
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}
}

func (c JWTConfig) missing() []string {
	var out []string
	if c.Issuer == "" {
		out = append(out, "JWT_ISSUER")
	}
	if c.Audience == "" {
		out = append(out, "JWT_AUDIENCE")
	}
	if c.JWKSURL == "" {
		out = append(out, "JWT_JWKS_URL")
	}
	return out
}
