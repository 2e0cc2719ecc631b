// Package snipe is the engine facade: the one-shot execution path and the
// strategy driver lifecycle, wired over the quote service, bundle engine and
// performance monitor.
package snipe

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/perf"
	"github.com/hxuan190/snipe-engine/internal/quote"
	"github.com/hxuan190/snipe-engine/internal/strategy"
)

const SNIPE_SERVICE = "snipe-service"

// ManualStrategyID tags one-shot executions in the performance aggregates.
const ManualStrategyID = "manual"

// SnipeRequest is the one-shot execution input. MaxPrice of 0 disables the
// price guard.
type SnipeRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     *big.Int

	MaxPrice    float64 // reject when the implied price exceeds this
	SlippageBps uint16
	TipLamports uint64 // explicit priority fee, 0 lets the engine decide
	Competitive bool   // aggressive preset: higher tip, preflight skipped
}

// Service wires the execution path end to end and owns the strategy drivers.
type Service struct {
	container.BaseDIInstance

	quotes  *quote.Service
	engine  *bundle.Engine
	builder bundle.TransactionBuilder
	perfMon *perf.Monitor
	conf    *config.EngineConfig
	wallet  solana.PublicKey

	drivers []*strategy.Driver
}

// NewService wires a snipe service from explicit dependencies. Used by
// Configure and directly by tests.
func NewService(quotes *quote.Service, engine *bundle.Engine, builder bundle.TransactionBuilder, perfMon *perf.Monitor, conf *config.EngineConfig, wallet solana.PublicKey) *Service {
	if conf == nil {
		conf = config.DefaultEngineConfig()
	}
	return &Service{
		quotes:  quotes,
		engine:  engine,
		builder: builder,
		perfMon: perfMon,
		conf:    conf,
		wallet:  wallet,
	}
}

func (s *Service) ID() string {
	return SNIPE_SERVICE
}

func (s *Service) Configure(c container.IContainer) error {
	s.conf = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	s.wallet = c.GetConfig(config.WALLET_CONFIG_KEY).(*config.WalletConfig).PublicKey
	s.quotes = c.Instance(quote.QUOTE_SERVICE).(*quote.Service)
	s.engine = c.Instance(bundle.BUNDLE_ENGINE_SERVICE).(*bundle.Engine)
	s.perfMon = c.Instance(perf.PERF_MONITOR_SERVICE).(*perf.Monitor)

	builder, ok := c.Instance(bundle.TX_BUILDER_SERVICE).(bundle.TransactionBuilder)
	if !ok {
		return errors.New("transaction builder service does not implement bundle.TransactionBuilder")
	}
	s.builder = builder
	return nil
}

func (s *Service) Start() error {
	for _, d := range s.drivers {
		go d.Run()
	}
	log.Info().Int("drivers", len(s.drivers)).Msg("[SnipeService] started")
	return nil
}

func (s *Service) Stop() error {
	for _, d := range s.drivers {
		d.Stop()
	}
	return nil
}

// AddDriver registers a strategy driver. Added drivers start with the
// service.
func (s *Service) AddDriver(trigger strategy.Trigger, cfg strategy.DriverConfig) *strategy.Driver {
	if cfg.Wallet.IsZero() {
		cfg.Wallet = s.wallet
	}
	d := strategy.NewDriver(trigger, cfg, s.quotes, s.engine, s.builder, s.perfMon)
	s.drivers = append(s.drivers, d)
	return d
}

// Drivers returns the registered strategy drivers.
func (s *Service) Drivers() []*strategy.Driver {
	return s.drivers
}

// ExecuteSnipe runs the immediate path: quote, price guard, build, submit.
// No monitoring loop is involved and expected failures come back tagged on
// the result.
func (s *Service) ExecuteSnipe(ctx context.Context, req *SnipeRequest) *domain.SwapResult {
	start := time.Now()

	if req == nil {
		return s.finish(start, &domain.SwapResult{Err: common.ValidationError("snipe request is nil")})
	}
	slippage := req.SlippageBps
	if slippage == 0 {
		slippage = s.conf.DefaultSlippageBps
	}

	qres := s.quotes.GetQuote(ctx, &domain.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: slippage,
	}, nil)
	if !qres.Success {
		return s.finish(start, &domain.SwapResult{Err: qres.Err})
	}
	q := qres.Quote

	if req.MaxPrice > 0 {
		if price := q.ImpliedPrice(); price > req.MaxPrice {
			return s.finish(start, &domain.SwapResult{
				Quote: q,
				Err: common.ValidationError(fmt.Sprintf(
					"implied price %.12f exceeds max price %.12f", price, req.MaxPrice)),
			})
		}
	}

	txs, err := s.builder.BuildSwap(ctx, q, s.wallet)
	if err != nil {
		return s.finish(start, &domain.SwapResult{Quote: q, Err: common.Classify(err)})
	}

	opts := &bundle.SendOptions{TipLamports: req.TipLamports}
	var bres *domain.BundleResult
	if req.Competitive {
		bres = s.engine.SendCompetitiveBundle(ctx, txs, opts)
	} else {
		bres = s.engine.SendTransactions(ctx, txs, opts)
	}

	return s.finish(start, &domain.SwapResult{
		Success:    bres.Success,
		Signatures: bres.Signatures,
		Err:        bres.Err,
		Quote:      q,
		TipsPaid:   bres.TipsPaid,
	})
}

// finish stamps the execution time and records the outcome under the manual
// strategy id.
func (s *Service) finish(start time.Time, res *domain.SwapResult) *domain.SwapResult {
	res.ExecutionTimeMs = time.Since(start).Milliseconds()

	if s.perfMon != nil {
		amount := uint64(0)
		if res.Quote != nil && res.Quote.InAmount != nil && res.Quote.InAmount.IsUint64() {
			amount = res.Quote.InAmount.Uint64()
		}
		s.perfMon.RecordTrade(&domain.PerformanceRecord{
			StrategyID:      ManualStrategyID,
			Success:         res.Success,
			ExecutionTimeMs: res.ExecutionTimeMs,
			AmountLamports:  amount,
			RecordedAt:      time.Now(),
		})
	}
	return res
}

// PerformanceMetrics assembles the full observable snapshot, bundle metrics
// included.
func (s *Service) PerformanceMetrics() *domain.PerformanceMetrics {
	out := s.perfMon.Metrics()
	if s.engine != nil {
		out.Bundles = s.engine.Metrics()
	}
	return out
}
