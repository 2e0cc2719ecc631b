// Package monitor runs price-target sessions: periodic probe quotes against a
// pair until a target, stop-loss, user stop or expiry ends the session.
package monitor

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

// PriceCallback receives every observed probe price while a session is active.
type PriceCallback func(price float64, at time.Time)

// ExitCallback receives the terminal status and, for triggered/stop-loss
// exits, the bundle execution result. The monitor reports the result once and
// never retries it.
type ExitCallback func(status domain.MonitorStatus, res *domain.BundleResult)

// tickDecision is the outcome of evaluating one probe price.
type tickDecision int

const (
	decideContinue tickDecision = iota
	decideTrigger
	decideStopLoss
)

// tickState is the slice of session state the evaluator needs. It is copied
// out under the session lock so evaluateTick stays a pure function.
type tickState struct {
	targetPrice float64
	stopLossPct float64
	highestSeen float64
}

// evaluateTick decides what a probe price means for the session. The target
// check runs before the stop-loss check, so a price that satisfies both exits
// as triggered.
func evaluateTick(st tickState, price float64) tickDecision {
	if st.targetPrice > 0 && price >= st.targetPrice {
		return decideTrigger
	}
	if st.stopLossPct > 0 {
		drawdownPct := float64(quote.DrawdownBps(st.highestSeen, price)) / 100
		if drawdownPct >= st.stopLossPct {
			return decideStopLoss
		}
	}
	return decideContinue
}

// Session is one live price-target watch. All mutable state is owned by the
// tick loop; ticks are strictly sequential. Stop only flips a flag the next
// observation point reads.
type Session struct {
	key          domain.SessionKey
	targetPrice  float64
	stopLossPct  float64
	slippageBps  uint16
	probeAmount  *big.Int
	pollInterval time.Duration
	deadline     time.Time

	quotes  *quote.Service
	engine  *bundle.Engine
	builder bundle.TransactionBuilder
	wallet  solana.PublicKey

	onPrice PriceCallback
	onExit  ExitCallback

	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	onDone   func(*Session)

	mu           sync.Mutex
	status       domain.MonitorStatus
	currentPrice float64
	highestSeen  float64
	ticks        int64
	startedAt    time.Time
}

// Key returns the session identity.
func (s *Session) Key() domain.SessionKey {
	return s.key
}

// Status returns the current lifecycle state.
func (s *Session) Status() domain.MonitorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a read-only view safe to hand out while ticking continues.
func (s *Session) Snapshot() *domain.MonitorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.MonitorSnapshot{
		Key:              s.key,
		Status:           s.status,
		TargetPrice:      s.targetPrice,
		StopLossPct:      s.stopLossPct,
		CurrentPrice:     s.currentPrice,
		HighestPriceSeen: s.highestSeen,
		Ticks:            s.ticks,
		StartedAt:        s.startedAt,
	}
}

// Stop requests termination. Idempotent and callable from any goroutine; the
// session exits at its next observation point and no tick acts after the flag
// is seen.
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) run() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.finish(domain.MonitorStoppedByUser, nil)
			return
		case <-ticker.C:
			if s.tick() {
				return
			}
		}
	}
}

// tick performs one probe. Returns true when the session reached a terminal
// state.
func (s *Session) tick() bool {
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.finish(domain.MonitorExpired, nil)
		return true
	}
	if s.stopped.Load() {
		s.finish(domain.MonitorStoppedByUser, nil)
		return true
	}

	req := &domain.QuoteRequest{
		InputMint:   s.key.InputMint,
		OutputMint:  s.key.OutputMint,
		Amount:      s.probeAmount,
		SlippageBps: s.slippageBps,
	}
	// The monitor always wants a live price; a cached route would freeze the
	// observed price for the whole TTL.
	res := s.quotes.GetQuote(context.Background(), req, &quote.Options{BypassCache: true})

	// Stop may have been requested while the quote was in flight. The result
	// must not be acted on.
	if s.stopped.Load() {
		s.finish(domain.MonitorStoppedByUser, nil)
		return true
	}

	if !res.Success {
		metrics.MonitorTicks.WithLabelValues("quote_failed").Inc()
		log.Warn().
			Str("input", s.key.InputMint.String()).
			Str("output", s.key.OutputMint.String()).
			Str("kind", string(res.Err.Kind)).
			Msg("[PriceMonitor] probe quote failed, session keeps ticking")
		return false
	}

	price := res.Quote.ImpliedPrice()

	s.mu.Lock()
	s.ticks++
	s.currentPrice = price
	if price > s.highestSeen {
		s.highestSeen = price
	}
	st := tickState{
		targetPrice: s.targetPrice,
		stopLossPct: s.stopLossPct,
		highestSeen: s.highestSeen,
	}
	s.mu.Unlock()

	if s.onPrice != nil {
		s.onPrice(price, time.Now())
	}

	switch evaluateTick(st, price) {
	case decideTrigger:
		metrics.MonitorTicks.WithLabelValues("triggered").Inc()
		s.finish(domain.MonitorTriggered, s.execute(res.Quote))
		return true
	case decideStopLoss:
		metrics.MonitorTicks.WithLabelValues("stop_loss").Inc()
		s.finish(domain.MonitorStoppedByLoss, s.execute(res.Quote))
		return true
	default:
		metrics.MonitorTicks.WithLabelValues("continue").Inc()
		return false
	}
}

// execute runs the exit trade once. Polling stops regardless of the outcome;
// the result only flows to the exit callback.
func (s *Session) execute(q *domain.Quote) *domain.BundleResult {
	if s.builder == nil || s.engine == nil {
		log.Error().Msg("[PriceMonitor] no execution path wired, exit trade skipped")
		return nil
	}

	txs, err := s.builder.BuildSwap(context.Background(), q, s.wallet)
	if err != nil {
		log.Error().Err(err).Msg("[PriceMonitor] failed to build exit swap")
		return &domain.BundleResult{Err: common.Classify(err)}
	}

	return s.engine.SendTransactions(context.Background(), txs, &bundle.SendOptions{
		Urgency: bundle.UrgencyHigh,
	})
}

// finish transitions to the terminal status exactly once and deregisters the
// session.
func (s *Session) finish(status domain.MonitorStatus, res *domain.BundleResult) {
	s.mu.Lock()
	if s.status != domain.MonitorActive {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()

	metrics.ActiveMonitorSessions.Dec()
	metrics.MonitorExits.WithLabelValues(string(status)).Inc()
	log.Info().
		Str("status", string(status)).
		Float64("last_price", s.currentPrice).
		Int64("ticks", s.ticks).
		Msg("[PriceMonitor] session finished")

	if s.onDone != nil {
		s.onDone(s)
	}
	if s.onExit != nil {
		s.onExit(status, res)
	}
}
