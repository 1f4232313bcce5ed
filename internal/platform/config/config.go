package config

import (
	"os"
	"strings"
	"time"
)

// DefaultProofMaxAge bounds how old a proof's created timestamp may be
// before the structural check rejects it. Policy parameter, not a
// cryptographic requirement.
const DefaultProofMaxAge = 10 * 365 * 24 * time.Hour

// Config captures all service configuration.
type Config struct {
	Addr    string
	BaseURL string

	// DatabaseURL selects the postgres stores; empty falls back to memory
	// stores (development and unit tests).
	DatabaseURL string
	// RedisURL enables the revocation status cache; empty disables it.
	RedisURL string
	// KafkaBrokers enables the audit event publisher; empty keeps events
	// in memory.
	KafkaBrokers []string

	// SigningKeyB64 is the base64-encoded PKCS#8 Ed25519 private key used
	// to sign credential proofs. When absent or invalid, issuance degrades
	// to placeholder proofs (see internal/vc/signing).
	SigningKeyB64 string
	// JWTSigningKey signs the HS256 bearer tokens for issuer endpoints.
	JWTSigningKey string

	ProofMaxAge time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("CERTO_ADDR", ":8080"),
		BaseURL:       strings.TrimRight(getenv("CERTO_BASE_URL", "http://localhost:8080"), "/"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SigningKeyB64: os.Getenv("ED25519_PRIVATE_KEY_PKCS8"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ProofMaxAge:   DefaultProofMaxAge,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if raw := os.Getenv("PROOF_MAX_AGE"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.ProofMaxAge = d
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
