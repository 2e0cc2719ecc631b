package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

// EngineConfig tunes the quote layer and the price-target monitor.
type EngineConfig struct {
	// QuoteTTLMs is how long a cached route quote stays valid.
	// Default: 10000
	QuoteTTLMs int

	// PriceImpactCeilingBps rejects quotes whose impact exceeds this bound.
	// 0 disables the guard. Default: 500
	PriceImpactCeilingBps uint16

	// RetryMaxAttempts / RetryBaseDelayMs bound provider retries.
	// Defaults: 3 attempts, 200ms base delay with exponential backoff.
	RetryMaxAttempts int
	RetryBaseDelayMs int

	// DefaultSlippageBps applies when a request carries no slippage.
	// Default: 50 (0.5%)
	DefaultSlippageBps uint16

	// ProbeAmountLamports is the fixed amount monitor ticks quote with.
	// Default: 1_000_000_000 (1 SOL)
	ProbeAmountLamports uint64

	// PollIntervalMs is the default monitor tick interval. Default: 1000
	PollIntervalMs int
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.QuoteTTLMs = common.GetEnvOrDefaultInt("QUOTE_TTL_MS", 10000)
	c.PriceImpactCeilingBps = uint16(common.GetEnvOrDefaultInt("PRICE_IMPACT_CEILING_BPS", 500))
	c.RetryMaxAttempts = common.GetEnvOrDefaultInt("QUOTE_RETRY_MAX_ATTEMPTS", 3)
	c.RetryBaseDelayMs = common.GetEnvOrDefaultInt("QUOTE_RETRY_BASE_DELAY_MS", 200)
	c.DefaultSlippageBps = uint16(common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50))
	c.ProbeAmountLamports = uint64(common.GetEnvOrDefaultInt("MONITOR_PROBE_AMOUNT_LAMPORTS", 1_000_000_000))
	c.PollIntervalMs = common.GetEnvOrDefaultInt("MONITOR_POLL_INTERVAL_MS", 1000)
	return c.Validate()
}

func (c *EngineConfig) Validate() error {
	if c.QuoteTTLMs <= 0 || c.RetryMaxAttempts < 1 || c.PollIntervalMs <= 0 {
		return errors.New("invalid engine config")
	}
	return nil
}

// DefaultEngineConfig returns the documented defaults without consulting the
// environment. Tests lean on it.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		QuoteTTLMs:            10000,
		PriceImpactCeilingBps: 500,
		RetryMaxAttempts:      3,
		RetryBaseDelayMs:      200,
		DefaultSlippageBps:    50,
		ProbeAmountLamports:   1_000_000_000,
		PollIntervalMs:        1000,
	}
}
