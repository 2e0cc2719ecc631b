package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/http"
	"github.com/hxuan190/snipe-engine/internal/monitor"
	"github.com/hxuan190/snipe-engine/internal/perf"
	"github.com/hxuan190/snipe-engine/internal/providers/sim"
	"github.com/hxuan190/snipe-engine/internal/quote"
	"github.com/hxuan190/snipe-engine/internal/snipe"
)

// @title Snipe Execution Engine API
// @version 1.0-beta
// @description Automated token-swap sniping engine: route quotes with caching
// @description and retry, bundle submission with tip strategies, price-target
// @description monitoring and strategy-driven execution.
// @description
// @description ## - Features
// @description - **Quote acquisition**: cached route quotes with bounded retry and price-impact guard
// @description - **Bundle submission**: simulation preflight, percentile tip strategy, progress reporting
// @description - **Price-target monitoring**: per-pair sessions with target / stop-loss / expiry exits
// @description - **Strategy drivers**: breakout, band and creation-aware periodic evaluators
// @description - **Performance tracking**: per-strategy aggregates with optional persistence
// @description
// @description ## - Usage Tips
// @description - Use smallest token units (lamports for SOL, base units for SPL tokens)
// @description - SOL has 9 decimals: 1 SOL = 1,000,000,000 lamports
// @description - Default slippage is 50 bps (0.5%)
// @description - Rate limit: 10 requests/second (burst: 20)
// @BasePath /
// @schemes http
// @tag.name quote
// @tag.description Get swap quotes with price impact analysis and routing information
// @tag.name snipe
// @tag.description Execute one-shot snipes through the bundle relay
// @tag.name monitor
// @tag.description Start, stop and inspect price-target monitor sessions
// @tag.name performance
// @tag.description Per-strategy and engine-wide execution statistics

func main() {
	// Runtime optimizations (GOGC, GOMAXPROCS, GOMEMLIMIT)
	common.InitRuntimeForSniping()

	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}
	common.InitLogging(os.Getenv("LOG_LEVEL"), os.Getenv("ENV"))

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.EngineConfig{},
		&config.RelayConfig{},
		&config.WalletConfig{},
		&config.PerfConfig{},
	)

	// di container
	dic, err := container.New(
		conf,

		// simulated backends; swap for live implementations registered under
		// the same service ids
		sim.NewRouteProvider(),
		sim.NewRelay(),
		sim.NewBuilder(),

		&perf.Monitor{},
		&quote.Service{},
		&bundle.Engine{},
		&monitor.Service{},
		&snipe.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run() waits for SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
