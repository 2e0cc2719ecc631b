// Package strategy runs periodic trade evaluators over a bounded price
// history. Each driver owns its own ticker and feeds every trade outcome to
// the performance monitor under its strategy id.
package strategy

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
	"github.com/hxuan190/snipe-engine/internal/perf"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

// Trigger turns a price history into a trade decision. Implementations are
// pure: no clock, no I/O.
type Trigger interface {
	ID() string
	Evaluate(history []float64, current float64) bool
}

// DriverConfig bounds one driver's behavior.
type DriverConfig struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Wallet     solana.PublicKey

	Amount      *big.Int
	SlippageBps uint16

	HistorySize          int // price samples retained, oldest dropped
	IntervalMs           int
	ConfirmationPeriodMs int // cooldown after a trigger
	MaxExecutions        int // lifetime cap, 0 means unlimited
}

func (c *DriverConfig) normalize() {
	if c.HistorySize <= 0 {
		c.HistorySize = 32
	}
	if c.IntervalMs <= 0 {
		c.IntervalMs = 1_000
	}
}

// priceRing is a bounded FIFO of observed prices.
type priceRing struct {
	buf  []float64
	head int
	n    int
}

func newPriceRing(size int) *priceRing {
	return &priceRing{buf: make([]float64, size)}
}

func (r *priceRing) push(v float64) {
	r.buf[(r.head+r.n)%len(r.buf)] = v
	if r.n < len(r.buf) {
		r.n++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

// values returns the history oldest-first.
func (r *priceRing) values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Driver is the shared state machine: probe price, push into the ring, ask
// the trigger, trade when cooldown and the execution cap allow. All mutable
// state is owned by the tick loop.
type Driver struct {
	trigger Trigger
	cfg     DriverConfig

	quotes  *quote.Service
	engine  *bundle.Engine
	builder bundle.TransactionBuilder
	perfMon *perf.Monitor

	stopCh   chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex
	history     *priceRing
	executions  int
	lastTrigger time.Time
}

func NewDriver(trigger Trigger, cfg DriverConfig, quotes *quote.Service, engine *bundle.Engine, builder bundle.TransactionBuilder, perfMon *perf.Monitor) *Driver {
	cfg.normalize()
	d := &Driver{
		trigger: trigger,
		cfg:     cfg,
		quotes:  quotes,
		engine:  engine,
		builder: builder,
		perfMon: perfMon,
		stopCh:  make(chan struct{}),
		history: newPriceRing(cfg.HistorySize),
	}
	if perfMon != nil {
		perfMon.Register(trigger.ID())
	}
	return d
}

// ID returns the strategy id all trade outcomes are recorded under.
func (d *Driver) ID() string {
	return d.trigger.ID()
}

// Executions returns the lifetime trigger count.
func (d *Driver) Executions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.executions
}

// Run ticks until Stop. Blocks; callers run it on its own goroutine.
func (d *Driver) Run() {
	log.Info().
		Str("strategy", d.ID()).
		Int("interval_ms", d.cfg.IntervalMs).
		Int("max_executions", d.cfg.MaxExecutions).
		Msg("[StrategyDriver] started")

	ticker := time.NewTicker(time.Duration(d.cfg.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			log.Info().Str("strategy", d.ID()).Msg("[StrategyDriver] stopped")
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// Stop halts the tick loop. Idempotent.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

func (d *Driver) tick() {
	req := &domain.QuoteRequest{
		InputMint:   d.cfg.InputMint,
		OutputMint:  d.cfg.OutputMint,
		Amount:      d.cfg.Amount,
		SlippageBps: d.cfg.SlippageBps,
	}
	res := d.quotes.GetQuote(context.Background(), req, &quote.Options{BypassCache: true})
	if !res.Success {
		return
	}
	d.Observe(res.Quote, time.Now())
}

// Observe folds one price into the history and executes when the trigger
// fires within the cooldown and execution-cap gates. Exposed so tests drive
// the state machine without timers.
func (d *Driver) Observe(q *domain.Quote, at time.Time) bool {
	price := q.ImpliedPrice()

	d.mu.Lock()
	history := d.history.values()
	d.history.push(price)

	metrics.StrategyEvaluations.WithLabelValues(d.ID()).Inc()
	if !d.trigger.Evaluate(history, price) {
		d.mu.Unlock()
		return false
	}
	if d.cfg.MaxExecutions > 0 && d.executions >= d.cfg.MaxExecutions {
		d.mu.Unlock()
		return false
	}
	if cooldown := time.Duration(d.cfg.ConfirmationPeriodMs) * time.Millisecond; cooldown > 0 &&
		!d.lastTrigger.IsZero() && at.Sub(d.lastTrigger) < cooldown {
		d.mu.Unlock()
		return false
	}
	d.executions++
	d.lastTrigger = at
	d.mu.Unlock()

	metrics.StrategyTriggers.WithLabelValues(d.ID()).Inc()
	log.Info().
		Str("strategy", d.ID()).
		Float64("price", price).
		Msg("[StrategyDriver] trigger fired")

	d.execute(q)
	return true
}

func (d *Driver) execute(q *domain.Quote) {
	start := time.Now()

	var result *domain.BundleResult
	if d.builder != nil && d.engine != nil {
		txs, err := d.builder.BuildSwap(context.Background(), q, d.cfg.Wallet)
		if err != nil {
			result = &domain.BundleResult{Err: common.Classify(err)}
		} else {
			result = d.engine.SendTransactions(context.Background(), txs, &bundle.SendOptions{
				Urgency: bundle.UrgencyHigh,
			})
		}
	} else {
		result = &domain.BundleResult{Err: common.WalletNotConnectedError("no execution path wired")}
	}

	if d.perfMon != nil {
		amount := uint64(0)
		if d.cfg.Amount != nil && d.cfg.Amount.IsUint64() {
			amount = d.cfg.Amount.Uint64()
		}
		d.perfMon.RecordTrade(&domain.PerformanceRecord{
			StrategyID:      d.ID(),
			Success:         result.Success,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			AmountLamports:  amount,
			RecordedAt:      time.Now(),
		})
	}
}
