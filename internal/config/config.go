// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/subpool/subpool/internal/lifecycle"
)

// Server captures process-level configuration.
type Server struct {
	Addr         string
	DBPath       string
	JWTSecret    string
	TokenTTL     time.Duration
	ScanInterval time.Duration
	Policy       lifecycle.Policy
}

// FromEnv reads configuration from the environment, falling back to
// development defaults.
func FromEnv() Server {
	return Server{
		Addr:         getEnv("SUBPOOL_ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "./data/subpool.db"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-key-change-in-production"),
		TokenTTL:     durationEnv("TOKEN_TTL", 24*time.Hour),
		ScanInterval: durationEnv("ESCALATION_SCAN_INTERVAL", time.Minute),
		Policy:       policyFromEnv(),
	}
}

// policyFromEnv overlays environment overrides on the default dispute and
// cancellation policy. The numeric defaults live in lifecycle.DefaultPolicy.
func policyFromEnv() lifecycle.Policy {
	p := lifecycle.DefaultPolicy()
	p.AdminResponseWindow = durationEnv("ADMIN_RESPONSE_WINDOW", p.AdminResponseWindow)
	p.InterventionWindow = durationEnv("INTERVENTION_WINDOW", p.InterventionWindow)
	p.EarlyCancellationThresholdDays = intEnv("EARLY_CANCELLATION_THRESHOLD_DAYS", p.EarlyCancellationThresholdDays)
	p.EarlyCancellationRestrictionDays = intEnv("EARLY_CANCELLATION_RESTRICTION_DAYS", p.EarlyCancellationRestrictionDays)
	p.FidelityPenaltyCents = int64(intEnv("FIDELITY_PENALTY_CENTS", int(p.FidelityPenaltyCents)))
	return p
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
