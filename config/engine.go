package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EngineSettings are the reconciliation tunables referenced all over the
// dashboards but owned here. They are read once at startup; malformed values
// are fatal (a half-configured engine must not process money).
//
// Env:
// - RECON_AUTO_MATCH_THRESHOLD  unit confidence needed for auto_matched (default 0.95)
// - RECON_MATCH_EPSILON         exact-match tolerance in currency units (default 0.01)
// - RECON_GRACE_PERIOD_HOURS    auto_matched -> completed delay (default 24)
type EngineSettings struct {
	AutoMatchThreshold decimal.Decimal
	MatchEpsilon       decimal.Decimal
	GracePeriod        time.Duration
}

var engineSettings *EngineSettings

func GetEngineSettings() *EngineSettings {
	if engineSettings == nil {
		LoadEngineSettings()
	}
	return engineSettings
}

func LoadEngineSettings() {
	settings := &EngineSettings{
		AutoMatchThreshold: decimal.NewFromFloat(0.95),
		MatchEpsilon:       decimal.NewFromFloat(0.01),
		GracePeriod:        24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("RECON_AUTO_MATCH_THRESHOLD")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			log.Fatalf("invalid RECON_AUTO_MATCH_THRESHOLD %q: must be a decimal in [0,1]", v)
		}
		settings.AutoMatchThreshold = d
	}

	if v := strings.TrimSpace(os.Getenv("RECON_MATCH_EPSILON")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			log.Fatalf("invalid RECON_MATCH_EPSILON %q: must be a non-negative decimal", v)
		}
		settings.MatchEpsilon = d
	}

	if v := strings.TrimSpace(os.Getenv("RECON_GRACE_PERIOD_HOURS")); v != "" {
		hours := intFromEnv("RECON_GRACE_PERIOD_HOURS", -1)
		if hours < 0 {
			log.Fatalf("invalid RECON_GRACE_PERIOD_HOURS %q: must be a non-negative integer", v)
		}
		settings.GracePeriod = time.Duration(hours) * time.Hour
	}

	engineSettings = settings
}
