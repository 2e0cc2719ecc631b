package monitor

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

var (
	testWallet = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintSOL    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintBONK   = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

// scriptedProvider serves quotes whose implied price follows a fixed script,
// holding the final price once the script is exhausted.
type scriptedProvider struct {
	mu     sync.Mutex
	prices []float64
	calls  int
	gate   chan struct{} // when set, every call blocks until the gate closes
}

func (p *scriptedProvider) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	if p.gate != nil {
		<-p.gate
	}

	p.mu.Lock()
	idx := p.calls
	if idx >= len(p.prices) {
		idx = len(p.prices) - 1
	}
	price := p.prices[idx]
	p.calls++
	p.mu.Unlock()

	return quoteAtPrice(req, price), nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// quoteAtPrice builds a quote whose implied price (in/out) equals price.
func quoteAtPrice(req *domain.QuoteRequest, price float64) *domain.Quote {
	in := new(big.Float).SetInt(req.Amount)
	out, _ := new(big.Float).Quo(in, big.NewFloat(price)).Int(nil)
	return &domain.Quote{
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		InAmount:   new(big.Int).Set(req.Amount),
		OutAmount:  out,
	}
}

type okRelay struct {
	submitCalls atomic.Int64
}

func (r *okRelay) Connected() bool { return true }

func (r *okRelay) Simulate(ctx context.Context, txs []*solana.Transaction) (*domain.SimulationResult, error) {
	return &domain.SimulationResult{Success: true}, nil
}

func (r *okRelay) Submit(ctx context.Context, txs []*solana.Transaction, tipLamports uint64, skipPreflight bool) ([]solana.Signature, error) {
	r.submitCalls.Add(1)
	return []solana.Signature{{}}, nil
}

func (r *okRelay) Status(ctx context.Context, bundleID string) (domain.BundleStatus, error) {
	return domain.BundleStatusConfirmed, nil
}

func (r *okRelay) RecentTips(ctx context.Context) ([]uint64, error) {
	return nil, nil
}

type countingBuilder struct {
	calls atomic.Int64
}

func (b *countingBuilder) BuildSwap(ctx context.Context, q *domain.Quote, wallet solana.PublicKey) ([]*solana.Transaction, error) {
	b.calls.Add(1)
	return []*solana.Transaction{{
		Message: solana.Message{
			Header:      solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys: []solana.PublicKey{wallet, solana.TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 1, Accounts: []uint16{0}, Data: []byte{1}},
			},
		},
	}}, nil
}

type harness struct {
	svc      *Service
	provider *scriptedProvider
	relay    *okRelay
	builder  *countingBuilder
	exits    chan domain.MonitorStatus
}

func newHarness(prices ...float64) *harness {
	provider := &scriptedProvider{prices: prices}
	relay := &okRelay{}
	builder := &countingBuilder{}

	econf := config.DefaultEngineConfig()
	econf.RetryBaseDelayMs = 1
	quotes := quote.NewService(provider, quote.NewCache(), nil, econf)

	rconf := config.DefaultRelayConfig()
	rconf.Enabled = true
	engine := bundle.NewEngine(relay, testWallet, rconf)

	return &harness{
		svc:      NewService(quotes, engine, builder, econf),
		provider: provider,
		relay:    relay,
		builder:  builder,
		exits:    make(chan domain.MonitorStatus, 8),
	}
}

func (h *harness) params(target, stopLossPct float64, pollMs int) *StartParams {
	return &StartParams{
		Wallet:         testWallet,
		InputMint:      mintSOL,
		OutputMint:     mintBONK,
		TargetPrice:    target,
		StopLossPct:    stopLossPct,
		ProbeAmount:    big.NewInt(1_000_000_000),
		PollIntervalMs: pollMs,
		OnExit: func(status domain.MonitorStatus, res *domain.BundleResult) {
			h.exits <- status
		},
	}
}

func (h *harness) waitExit(t *testing.T) domain.MonitorStatus {
	t.Helper()
	select {
	case status := <-h.exits:
		return status
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
		return ""
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartMonitorSingleFlight(t *testing.T) {
	h := newHarness(1.0)
	params := h.params(100, 10, 60_000) // never ticks within the test

	sess, terr := h.svc.StartMonitor(params)
	if terr != nil {
		t.Fatalf("first start: %v", terr)
	}
	if sess.Status() != domain.MonitorActive {
		t.Fatalf("status = %s, want active", sess.Status())
	}

	if _, terr := h.svc.StartMonitor(params); terr == nil {
		t.Fatal("second start on the same key must fail")
	}
	if n := h.svc.ActiveSessionCount(); n != 1 {
		t.Fatalf("active sessions = %d, want 1", n)
	}

	// A different pair is an independent session.
	other := h.params(100, 10, 60_000)
	other.OutputMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if _, terr := h.svc.StartMonitor(other); terr != nil {
		t.Fatalf("independent pair rejected: %v", terr)
	}
	if n := h.svc.ActiveSessionCount(); n != 2 {
		t.Fatalf("active sessions = %d, want 2", n)
	}

	h.svc.Stop()
	waitFor(t, func() bool { return h.svc.ActiveSessionCount() == 0 }, "sessions did not drain")
}

func TestStopMonitorIsIdempotent(t *testing.T) {
	h := newHarness(1.0)
	sess, terr := h.svc.StartMonitor(h.params(100, 10, 60_000))
	if terr != nil {
		t.Fatalf("start: %v", terr)
	}
	key := sess.Key()

	if !h.svc.StopMonitor(key) {
		t.Fatal("stop on a live session must report true")
	}
	if status := h.waitExit(t); status != domain.MonitorStoppedByUser {
		t.Fatalf("status = %s, want stopped_by_user", status)
	}

	sess.Stop() // direct repeat is a no-op
	waitFor(t, func() bool { return h.svc.ActiveSessionCount() == 0 }, "session not deregistered")
	if h.svc.StopMonitor(key) {
		t.Fatal("stop after removal must report false")
	}
	if h.builder.calls.Load() != 0 {
		t.Fatal("user stop must not execute a trade")
	}
}

func TestMonitorTriggersOnThirdTick(t *testing.T) {
	// SOL -> BONK, target 0.000012, stop-loss 10%. The first two probes sit
	// under target, the third crosses it.
	h := newHarness(0.0000115, 0.0000119, 0.0000121)

	_, terr := h.svc.StartMonitor(h.params(0.000012, 10, 1))
	if terr != nil {
		t.Fatalf("start: %v", terr)
	}

	if status := h.waitExit(t); status != domain.MonitorTriggered {
		t.Fatalf("status = %s, want triggered", status)
	}
	if calls := h.provider.callCount(); calls != 3 {
		t.Fatalf("probe quotes = %d, want 3 (triggered on third tick)", calls)
	}
	if h.builder.calls.Load() != 1 {
		t.Fatalf("builder calls = %d, want exactly 1", h.builder.calls.Load())
	}
	if h.relay.submitCalls.Load() != 1 {
		t.Fatalf("submits = %d, want exactly 1", h.relay.submitCalls.Load())
	}
	waitFor(t, func() bool { return h.svc.ActiveSessionCount() == 0 }, "triggered session not deregistered")
}

func TestMonitorTargetWinsOverStopLossRace(t *testing.T) {
	// Dip to a drawdown just under the 10% stop-loss, then rise past target.
	h := newHarness(100, 91, 120)

	_, terr := h.svc.StartMonitor(h.params(120, 10, 1))
	if terr != nil {
		t.Fatalf("start: %v", terr)
	}

	if status := h.waitExit(t); status != domain.MonitorTriggered {
		t.Fatalf("status = %s, want triggered (target checked before stop-loss)", status)
	}
}

func TestMonitorStopLoss(t *testing.T) {
	h := newHarness(100, 105, 90)

	_, terr := h.svc.StartMonitor(h.params(200, 10, 1))
	if terr != nil {
		t.Fatalf("start: %v", terr)
	}

	if status := h.waitExit(t); status != domain.MonitorStoppedByLoss {
		t.Fatalf("status = %s, want stopped_by_loss", status)
	}
	// Stop-loss exits the position through the engine.
	if h.builder.calls.Load() != 1 {
		t.Fatalf("builder calls = %d, want 1", h.builder.calls.Load())
	}
}

func TestMonitorExpires(t *testing.T) {
	h := newHarness(1.0)
	params := h.params(100, 10, 1)
	params.MaxDurationMs = 20

	if _, terr := h.svc.StartMonitor(params); terr != nil {
		t.Fatalf("start: %v", terr)
	}
	if status := h.waitExit(t); status != domain.MonitorExpired {
		t.Fatalf("status = %s, want expired", status)
	}
	if h.builder.calls.Load() != 0 {
		t.Fatal("expiry must not execute a trade")
	}
}

func TestStopDuringInFlightQuoteIsNotActedOn(t *testing.T) {
	// The in-flight probe resolves at target price, but stop() lands first:
	// the session must end stopped_by_user without executing.
	h := newHarness(100)
	h.provider.gate = make(chan struct{})

	sess, terr := h.svc.StartMonitor(h.params(100, 10, 1))
	if terr != nil {
		t.Fatalf("start: %v", terr)
	}

	time.Sleep(10 * time.Millisecond) // let the first probe enter the gate

	sess.Stop()
	close(h.provider.gate)

	if status := h.waitExit(t); status != domain.MonitorStoppedByUser {
		t.Fatalf("status = %s, want stopped_by_user", status)
	}
	if h.builder.calls.Load() != 0 {
		t.Fatal("stopped session acted on an in-flight quote")
	}
}

func TestMonitorPriceCallback(t *testing.T) {
	h := newHarness(10, 20, 30)
	var mu sync.Mutex
	var seen []float64

	params := h.params(30, 0, 1)
	params.OnPrice = func(price float64, at time.Time) {
		mu.Lock()
		seen = append(seen, price)
		mu.Unlock()
	}

	if _, terr := h.svc.StartMonitor(params); terr != nil {
		t.Fatalf("start: %v", terr)
	}
	h.waitExit(t)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("price callbacks = %d, want 3", len(seen))
	}
	for i, want := range []float64{10, 20, 30} {
		if seen[i] < want*0.999 || seen[i] > want*1.001 {
			t.Fatalf("price[%d] = %f, want ~%f", i, seen[i], want)
		}
	}
}

func TestStartMonitorValidation(t *testing.T) {
	h := newHarness(1.0)

	cases := []struct {
		name   string
		mutate func(*StartParams)
	}{
		{"zero target", func(p *StartParams) { p.TargetPrice = 0 }},
		{"negative stop loss", func(p *StartParams) { p.StopLossPct = -1 }},
		{"stop loss over 100", func(p *StartParams) { p.StopLossPct = 100 }},
		{"same mints", func(p *StartParams) { p.OutputMint = p.InputMint }},
		{"zero mint", func(p *StartParams) { p.OutputMint = solana.PublicKey{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := h.params(100, 10, 60_000)
			tc.mutate(params)
			if _, terr := h.svc.StartMonitor(params); terr == nil {
				t.Fatal("invalid params accepted")
			}
		})
	}
	if h.svc.ActiveSessionCount() != 0 {
		t.Fatal("invalid start leaked a session")
	}
}

func TestEvaluateTickOrder(t *testing.T) {
	// A price that satisfies both conditions exits as triggered: the target
	// check runs first.
	st := tickState{targetPrice: 50, stopLossPct: 10, highestSeen: 100}
	if got := evaluateTick(st, 50); got != decideTrigger {
		t.Fatalf("decision = %d, want trigger when target and stop-loss co-occur", got)
	}

	if got := evaluateTick(tickState{targetPrice: 100, stopLossPct: 10, highestSeen: 100}, 89); got != decideStopLoss {
		t.Fatalf("decision = %d, want stop-loss at 11%% drawdown", got)
	}
	if got := evaluateTick(tickState{targetPrice: 100, stopLossPct: 10, highestSeen: 100}, 91); got != decideContinue {
		t.Fatalf("decision = %d, want continue at 9%% drawdown", got)
	}
	// Stop-loss disabled.
	if got := evaluateTick(tickState{targetPrice: 100, stopLossPct: 0, highestSeen: 100}, 1); got != decideContinue {
		t.Fatalf("decision = %d, want continue with stop-loss disabled", got)
	}
}
