package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

// PerfConfig tunes performance-record persistence.
type PerfConfig struct {
	// DBPath is the path to the BoltDB file for trade record persistence.
	// Default: "./data/snipe-engine.db"
	DBPath string

	// PersistenceEnabled controls whether trade records are persisted.
	// Default: true
	PersistenceEnabled bool
}

func (c *PerfConfig) Key() string {
	return PERF_CONFIG_KEY
}

func (c *PerfConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("PERF_DB_PATH", "./data/snipe-engine.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("PERF_PERSISTENCE_ENABLED", "true") == "true"
	return nil
}

func (c *PerfConfig) Validate() error {
	return nil
}
