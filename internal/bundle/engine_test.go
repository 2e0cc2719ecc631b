package bundle

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
)

type fakeRelay struct {
	connected   bool
	simFailLeft int // fail this many simulations before passing
	simErr      error
	submitErr   error
	recentTips  []uint64

	simCalls    int
	submitCalls int
}

func (f *fakeRelay) Connected() bool { return f.connected }

func (f *fakeRelay) Simulate(ctx context.Context, txs []*solana.Transaction) (*domain.SimulationResult, error) {
	f.simCalls++
	if f.simErr != nil {
		return nil, f.simErr
	}
	if f.simFailLeft > 0 {
		f.simFailLeft--
		return &domain.SimulationResult{Success: false, Error: "program error: custom 0x1"}, nil
	}
	return &domain.SimulationResult{Success: true, ComputeUnitsConsumed: 120_000}, nil
}

func (f *fakeRelay) Submit(ctx context.Context, txs []*solana.Transaction, tipLamports uint64, skipPreflight bool) ([]solana.Signature, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return []solana.Signature{{}}, nil
}

func (f *fakeRelay) Status(ctx context.Context, bundleID string) (domain.BundleStatus, error) {
	return domain.BundleStatusConfirmed, nil
}

func (f *fakeRelay) RecentTips(ctx context.Context) ([]uint64, error) {
	return f.recentTips, nil
}

func testWallet() solana.PublicKey {
	return solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
}

func testTx(wallet solana.PublicKey) *solana.Transaction {
	program := solana.TokenProgramID
	return &solana.Transaction{
		Message: solana.Message{
			Header:      solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys: []solana.PublicKey{wallet, program},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 1, Accounts: []uint16{0}, Data: []byte{1}},
			},
		},
	}
}

func testEngine(relay Relay) *Engine {
	conf := config.DefaultRelayConfig()
	conf.Enabled = true
	return NewEngine(relay, testWallet(), conf)
}

func TestSendBundleRejectsWhenRelayDisconnected(t *testing.T) {
	relay := &fakeRelay{connected: false}
	eng := testEngine(relay)

	prepared, terr := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	if terr != nil {
		t.Fatalf("CreateBundle: %v", terr)
	}

	res := eng.SendBundle(context.Background(), prepared, nil)
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Err.Kind != common.ErrWalletNotConnected {
		t.Fatalf("kind = %s, want %s", res.Err.Kind, common.ErrWalletNotConnected)
	}
	if res.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0 (no relay attempt consumed)", res.Attempts)
	}
	if relay.simCalls != 0 || relay.submitCalls != 0 {
		t.Fatal("relay must not be touched when disconnected")
	}

	m := eng.Metrics()
	if m.TotalBundles != 1 || m.FailedBundles != 1 {
		t.Fatalf("metrics = %+v, want one failed bundle", m)
	}
}

func TestSendBundleRetriesSimulationFailure(t *testing.T) {
	relay := &fakeRelay{connected: true, simFailLeft: 1}
	eng := testEngine(relay)

	prepared, terr := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	if terr != nil {
		t.Fatalf("CreateBundle: %v", terr)
	}

	res := eng.SendBundle(context.Background(), prepared, &SendOptions{MaxRetries: 2})
	if !res.Success {
		t.Fatalf("expected success after retry, got %v", res.Err)
	}
	if res.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", res.Attempts)
	}
	if relay.simCalls != 2 || relay.submitCalls != 1 {
		t.Fatalf("simCalls = %d submitCalls = %d", relay.simCalls, relay.submitCalls)
	}
	if res.TipsPaid != prepared.TipLamports {
		t.Fatalf("tipsPaid = %d, want %d", res.TipsPaid, prepared.TipLamports)
	}

	// One logical submission regardless of attempts inside.
	m := eng.Metrics()
	if m.TotalBundles != 1 || m.SuccessfulBundles != 1 || m.FailedBundles != 0 {
		t.Fatalf("metrics = %+v, want one successful bundle", m)
	}
	if m.TotalTipsPaidLamports != prepared.TipLamports {
		t.Fatalf("totalTips = %d, want %d", m.TotalTipsPaidLamports, prepared.TipLamports)
	}
}

func TestSendBundleExhaustsRetriesOnSimulationFailure(t *testing.T) {
	relay := &fakeRelay{connected: true, simFailLeft: 10}
	eng := testEngine(relay)

	prepared, _ := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	res := eng.SendBundle(context.Background(), prepared, &SendOptions{MaxRetries: 3})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err.Kind != common.ErrSimulation {
		t.Fatalf("kind = %s, want %s", res.Err.Kind, common.ErrSimulation)
	}
	if res.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", res.Attempts)
	}
}

func TestSendBundleStopsOnNonRetryableSubmitError(t *testing.T) {
	relay := &fakeRelay{connected: true, submitErr: errors.New("blockhash not found")}
	eng := testEngine(relay)

	prepared, _ := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	res := eng.SendBundle(context.Background(), prepared, &SendOptions{MaxRetries: 3})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err.Kind != common.ErrInvalidBlockhash {
		t.Fatalf("kind = %s, want %s", res.Err.Kind, common.ErrInvalidBlockhash)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}
}

func TestSendBundleProgressSequence(t *testing.T) {
	relay := &fakeRelay{connected: true}
	eng := testEngine(relay)

	type checkpoint struct {
		stage domain.BundleStage
		pct   int
	}
	var seen []checkpoint

	prepared, _ := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	res := eng.SendBundle(context.Background(), prepared, &SendOptions{
		OnProgress: func(stage domain.BundleStage, pct int) {
			seen = append(seen, checkpoint{stage, pct})
		},
	})
	if !res.Success {
		t.Fatalf("send failed: %v", res.Err)
	}

	want := []checkpoint{
		{domain.StagePreparing, 10},
		{domain.StageSimulating, 20},
		{domain.StageSubmitting, 50},
		{domain.StageConfirmed, 100},
	}
	if len(seen) != len(want) {
		t.Fatalf("checkpoints = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("checkpoint[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestCreateBundleValidation(t *testing.T) {
	eng := testEngine(&fakeRelay{connected: true})

	if _, terr := eng.CreateBundle(nil, nil); terr == nil || terr.Kind != common.ErrValidation {
		t.Fatalf("empty bundle: got %v, want validation error", terr)
	}

	txs := make([]*solana.Transaction, eng.conf.MaxBundleSize+1)
	for i := range txs {
		txs[i] = testTx(testWallet())
	}
	if _, terr := eng.CreateBundle(txs, nil); terr == nil || terr.Kind != common.ErrBundleTooLarge {
		t.Fatalf("oversized bundle: got %v, want bundle too large", terr)
	}
}

func TestCreateBundleAppendsTipTransfer(t *testing.T) {
	eng := testEngine(&fakeRelay{connected: true})
	orig := testTx(testWallet())
	origInstructions := len(orig.Message.Instructions)

	prepared, terr := eng.CreateBundle([]*solana.Transaction{orig}, &SendOptions{TipLamports: 42_000})
	if terr != nil {
		t.Fatalf("CreateBundle: %v", terr)
	}
	if prepared.TipLamports != 42_000 {
		t.Fatalf("tip = %d, want explicit 42000", prepared.TipLamports)
	}

	last := prepared.Transactions[len(prepared.Transactions)-1]
	if got := len(last.Message.Instructions); got != origInstructions+1 {
		t.Fatalf("instructions = %d, want %d", got, origInstructions+1)
	}
	// The input transaction must not be mutated.
	if len(orig.Message.Instructions) != origInstructions {
		t.Fatal("input transaction mutated")
	}

	tipIx := last.Message.Instructions[len(last.Message.Instructions)-1]
	if prog := last.Message.AccountKeys[tipIx.ProgramIDIndex]; !prog.Equals(solana.SystemProgramID) {
		t.Fatalf("tip program = %s, want system program", prog)
	}
	if idx := binary.LittleEndian.Uint32(tipIx.Data[0:4]); idx != 2 {
		t.Fatalf("instruction index = %d, want 2 (transfer)", idx)
	}
	if lamports := binary.LittleEndian.Uint64(tipIx.Data[4:12]); lamports != 42_000 {
		t.Fatalf("tip lamports = %d, want 42000", lamports)
	}

	from := last.Message.AccountKeys[tipIx.Accounts[0]]
	if !from.Equals(testWallet()) {
		t.Fatalf("tip source = %s, want wallet", from)
	}
	to := last.Message.AccountKeys[tipIx.Accounts[1]]
	found := false
	for _, acc := range common.RelayTipAccounts {
		if to.Equals(acc) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("tip destination %s is not a relay tip account", to)
	}

	if prepared.TipAccount.IsZero() {
		t.Fatal("prepared bundle missing tip account")
	}
}

func TestCreateBundleUsesStrategyPresetWithoutRelayTips(t *testing.T) {
	eng := testEngine(&fakeRelay{connected: true}) // no recent tips

	standard, _ := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, nil)
	if standard.TipLamports != eng.conf.DefaultTipLamports {
		t.Fatalf("standard tip = %d, want %d", standard.TipLamports, eng.conf.DefaultTipLamports)
	}

	aggressive, _ := eng.CreateBundle([]*solana.Transaction{testTx(testWallet())}, &SendOptions{Strategy: domain.BundleStrategyAggressive})
	if aggressive.TipLamports != eng.conf.AggressiveTipLamports {
		t.Fatalf("aggressive tip = %d, want %d", aggressive.TipLamports, eng.conf.AggressiveTipLamports)
	}
}

func TestSendCompetitiveBundleSkipsPreflight(t *testing.T) {
	relay := &fakeRelay{connected: true, simFailLeft: 10}
	eng := testEngine(relay)

	res := eng.SendCompetitiveBundle(context.Background(), []*solana.Transaction{testTx(testWallet())}, nil)
	if !res.Success {
		t.Fatalf("competitive send failed: %v", res.Err)
	}
	if relay.simCalls != 0 {
		t.Fatal("competitive path must skip simulation")
	}
	if res.TipsPaid != eng.conf.AggressiveTipLamports {
		t.Fatalf("tipsPaid = %d, want aggressive preset %d", res.TipsPaid, eng.conf.AggressiveTipLamports)
	}
}

func TestMetricsConservation(t *testing.T) {
	relay := &fakeRelay{connected: true}
	eng := testEngine(relay)
	tx := []*solana.Transaction{testTx(testWallet())}

	eng.SendTransactions(context.Background(), tx, nil)
	relay.submitErr = errors.New("connection reset")
	eng.SendTransactions(context.Background(), tx, &SendOptions{MaxRetries: 1})
	relay.submitErr = nil
	eng.SendTransactions(context.Background(), tx, nil)

	m := eng.Metrics()
	if m.TotalBundles != 3 {
		t.Fatalf("total = %d, want 3", m.TotalBundles)
	}
	if m.SuccessfulBundles+m.FailedBundles != m.TotalBundles {
		t.Fatalf("conservation violated: %+v", m)
	}
	if m.SuccessfulBundles != 2 || m.FailedBundles != 1 {
		t.Fatalf("split = %d/%d, want 2/1", m.SuccessfulBundles, m.FailedBundles)
	}
	wantRate := float64(2) / 3 * 100
	if m.SuccessRatePct < wantRate-0.01 || m.SuccessRatePct > wantRate+0.01 {
		t.Fatalf("successRate = %f, want %f", m.SuccessRatePct, wantRate)
	}
	if m.AverageExecutionTimeMs < 0 {
		t.Fatalf("average execution time negative: %f", m.AverageExecutionTimeMs)
	}
}

func TestOptimalTipUsesRelayPercentiles(t *testing.T) {
	tips := make([]uint64, 0, 100)
	for i := uint64(1); i <= 100; i++ {
		tips = append(tips, i*1_000)
	}
	relay := &fakeRelay{connected: true, recentTips: tips}
	calc := NewTipCalculator(relay)

	res := calc.OptimalTip(context.Background(), UrgencyMedium)
	if res.SampleCount != 100 {
		t.Fatalf("sampleCount = %d, want 100", res.SampleCount)
	}
	// p75 over 1k..100k.
	if res.TipLamports < 70_000 || res.TipLamports > 80_000 {
		t.Fatalf("p75 tip = %d, want ~75000", res.TipLamports)
	}

	low := calc.OptimalTip(context.Background(), UrgencyLow)
	if low.TipLamports >= res.TipLamports {
		t.Fatalf("p50 %d should be below p75 %d", low.TipLamports, res.TipLamports)
	}
}

func TestOptimalTipFallsBackToDefaults(t *testing.T) {
	calc := NewTipCalculator(&fakeRelay{connected: true}) // no samples

	res := calc.OptimalTip(context.Background(), UrgencyExtreme)
	if res.SampleCount != 0 {
		t.Fatalf("sampleCount = %d, want 0", res.SampleCount)
	}
	if res.TipLamports != DefaultTips[UrgencyExtreme] {
		t.Fatalf("tip = %d, want default %d", res.TipLamports, DefaultTips[UrgencyExtreme])
	}
}
