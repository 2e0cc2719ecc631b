package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

// RelayConfig tunes bundle assembly and submission.
type RelayConfig struct {
	// Enabled gates all submissions; a disabled relay rejects immediately.
	// Default: true
	Enabled bool

	// DefaultTipLamports / AggressiveTipLamports are the per-bundle tips for
	// the standard and aggressive presets. Defaults: 10_000 / 100_000.
	DefaultTipLamports    uint64
	AggressiveTipLamports uint64

	// SubmitTimeoutMs bounds one logical submission. Default: 30000
	SubmitTimeoutMs int

	// MaxRetries bounds relay attempts per logical bundle. Default: 2
	MaxRetries int

	// MaxBundleSize is the relay's transaction-per-bundle cap. Default: 5
	MaxBundleSize int
}

func (c *RelayConfig) Key() string {
	return RELAY_CONFIG_KEY
}

func (c *RelayConfig) Load() error {
	c.Enabled = common.GetEnvOrDefault("RELAY_ENABLED", "true") == "true"
	c.DefaultTipLamports = uint64(common.GetEnvOrDefaultInt("RELAY_DEFAULT_TIP_LAMPORTS", 10_000))
	c.AggressiveTipLamports = uint64(common.GetEnvOrDefaultInt("RELAY_AGGRESSIVE_TIP_LAMPORTS", 100_000))
	c.SubmitTimeoutMs = common.GetEnvOrDefaultInt("RELAY_SUBMIT_TIMEOUT_MS", 30_000)
	c.MaxRetries = common.GetEnvOrDefaultInt("RELAY_MAX_RETRIES", 2)
	c.MaxBundleSize = common.GetEnvOrDefaultInt("RELAY_MAX_BUNDLE_SIZE", 5)
	return c.Validate()
}

func (c *RelayConfig) Validate() error {
	if c.SubmitTimeoutMs <= 0 || c.MaxRetries < 1 || c.MaxBundleSize < 1 {
		return errors.New("invalid relay config")
	}
	return nil
}

// DefaultRelayConfig returns the documented defaults. Tests lean on it.
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		Enabled:               true,
		DefaultTipLamports:    10_000,
		AggressiveTipLamports: 100_000,
		SubmitTimeoutMs:       30_000,
		MaxRetries:            2,
		MaxBundleSize:         5,
	}
}
