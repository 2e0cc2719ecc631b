package strategy

import (
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/perf"
)

var (
	mintSOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintBONK = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

func quoteAt(price float64) *domain.Quote {
	in := big.NewInt(1_000_000_000)
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(in), big.NewFloat(price)).Int(nil)
	return &domain.Quote{
		InputMint:  mintSOL,
		OutputMint: mintBONK,
		InAmount:   in,
		OutAmount:  out,
	}
}

func testDriver(trigger Trigger, cfg DriverConfig) *Driver {
	cfg.InputMint = mintSOL
	cfg.OutputMint = mintBONK
	cfg.Amount = big.NewInt(1_000_000_000)
	// No execution path wired: triggers record failed trades, which is all
	// the gating tests need.
	return NewDriver(trigger, cfg, nil, nil, nil, nil)
}

func TestPriceRingDropsOldest(t *testing.T) {
	r := newPriceRing(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.push(v)
	}
	got := r.values()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}
}

func TestBreakoutTrigger(t *testing.T) {
	b := NewBreakout("", 3, 5) // 5% over a 3-sample average

	if b.Evaluate([]float64{100, 100}, 200) {
		t.Fatal("must not fire before the window fills")
	}
	if b.Evaluate([]float64{100, 100, 100}, 104) {
		t.Fatal("4% rise must not clear a 5% breakout")
	}
	if !b.Evaluate([]float64{100, 100, 100}, 105) {
		t.Fatal("5% rise must fire")
	}
	// Only the last Window samples form the average.
	if !b.Evaluate([]float64{1000, 100, 100, 100}, 105) {
		t.Fatal("older samples outside the window must not dilute the average")
	}
}

func TestBandTrigger(t *testing.T) {
	b := NewBand("", 4, 2)

	history := []float64{100, 102, 98, 100} // mean 100, stddev ~1.414
	if b.Evaluate(history, 102) {
		t.Fatal("inside the band must not fire")
	}
	if !b.Evaluate(history, 103) {
		t.Fatal("above mean + 2*stddev must fire")
	}
	if b.Evaluate([]float64{100, 100, 100, 100}, 200) {
		t.Fatal("flat history has no band signal")
	}
}

func TestCreationTrigger(t *testing.T) {
	c := NewCreation("", 5, 10)

	if c.Evaluate(nil, 100) {
		t.Fatal("no prior observation, no listing price")
	}
	if !c.Evaluate([]float64{100, 105}, 111) {
		t.Fatal("11% rise on a young pair must fire")
	}
	if c.Evaluate([]float64{100, 105}, 109) {
		t.Fatal("9% rise must not clear the 10% threshold")
	}
	// Established pair: history at/over the age cap.
	if c.Evaluate([]float64{100, 101, 102, 103, 104}, 200) {
		t.Fatal("established pair must never fire")
	}
}

func TestDriverCooldownGatesTriggers(t *testing.T) {
	d := testDriver(NewBreakout("cooldown-test", 1, 0), DriverConfig{
		HistorySize:          8,
		ConfirmationPeriodMs: 1_000,
	})

	base := time.Now()
	d.Observe(quoteAt(100), base.Add(-time.Second)) // prime the history
	if !d.Observe(quoteAt(100), base) {
		t.Fatal("observation over the threshold must fire")
	}
	if d.Observe(quoteAt(200), base.Add(500*time.Millisecond)) {
		t.Fatal("trigger inside the cooldown must be suppressed")
	}
	if !d.Observe(quoteAt(300), base.Add(1_500*time.Millisecond)) {
		t.Fatal("trigger after the cooldown must fire")
	}
	if d.Executions() != 2 {
		t.Fatalf("executions = %d, want 2", d.Executions())
	}
}

func TestDriverMaxExecutionsCap(t *testing.T) {
	d := testDriver(NewBreakout("cap-test", 1, 0), DriverConfig{
		HistorySize:   8,
		MaxExecutions: 2,
	})

	at := time.Now()
	fired := 0
	for i := 0; i < 5; i++ {
		if d.Observe(quoteAt(float64(100+i)), at.Add(time.Duration(i)*time.Minute)) {
			fired++
		}
	}
	if fired != 2 {
		t.Fatalf("fired = %d, want lifetime cap of 2", fired)
	}
	if d.Executions() != 2 {
		t.Fatalf("executions = %d, want 2", d.Executions())
	}
}

func TestDriverRecordsOutcomesUnderItsStrategyID(t *testing.T) {
	mon := perf.NewMonitor()
	d := NewDriver(NewBreakout("recorded", 1, 0), DriverConfig{
		HistorySize: 8,
		Amount:      big.NewInt(1_000_000_000),
		InputMint:   mintSOL,
		OutputMint:  mintBONK,
	}, nil, nil, nil, mon)

	// Registration happens at construction, before any trade.
	if sp := mon.StrategyPerformance("recorded"); sp == nil || sp.TotalTrades != 0 {
		t.Fatal("driver did not register its strategy id")
	}

	d.Observe(quoteAt(100), time.Now()) // primes the history, no trigger
	d.Observe(quoteAt(100), time.Now())

	sp := mon.StrategyPerformance("recorded")
	if sp.TotalTrades != 1 {
		t.Fatalf("totalTrades = %d, want 1", sp.TotalTrades)
	}
	// No execution path wired in this test, so the trade fails.
	if sp.FailedTrades != 1 {
		t.Fatalf("failedTrades = %d, want 1", sp.FailedTrades)
	}
	if sp.TotalInvestedLamports != 1_000_000_000 {
		t.Fatalf("invested = %d, want probe amount", sp.TotalInvestedLamports)
	}
}

func TestDriverHistoryExcludesCurrentSample(t *testing.T) {
	// The breakout average must be computed over prior samples only; a price
	// included in its own average could never break out of it.
	d := testDriver(NewBreakout("self-test", 2, 50), DriverConfig{HistorySize: 8})

	at := time.Now()
	d.Observe(quoteAt(100), at)
	d.Observe(quoteAt(100), at.Add(time.Second))
	if !d.Observe(quoteAt(150), at.Add(2*time.Second)) {
		t.Fatal("50% jump over a flat two-sample history must fire")
	}
}
