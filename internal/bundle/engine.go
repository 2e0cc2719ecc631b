package bundle

import (
	"context"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
	"github.com/hxuan190/snipe-engine/internal/retry"
)

const BUNDLE_ENGINE_SERVICE = "bundle-engine-service"

// SendOptions tweak one logical submission. Zero values fall back to the
// relay config.
type SendOptions struct {
	Strategy      domain.BundleStrategy
	TipLamports   uint64 // 0 derives the tip from the calculator/preset
	Urgency       Urgency
	TimeoutMs     int
	MaxRetries    int
	SkipPreflight bool
	OnProgress    domain.ProgressFunc
}

// Engine assembles transaction bundles, applies the tipping strategy,
// submits through the relay and owns the submission metrics aggregate.
type Engine struct {
	container.BaseDIInstance

	relay  Relay
	tips   *TipCalculator
	wallet solana.PublicKey
	conf   *config.RelayConfig

	mu sync.Mutex
	m  domain.BundleMetrics
}

// NewEngine wires a bundle engine from explicit dependencies. Used by
// Configure and directly by tests.
func NewEngine(relay Relay, wallet solana.PublicKey, conf *config.RelayConfig) *Engine {
	if conf == nil {
		conf = config.DefaultRelayConfig()
	}
	e := &Engine{relay: relay, wallet: wallet, conf: conf}
	if relay != nil {
		e.tips = NewTipCalculator(relay)
	}
	return e
}

func (e *Engine) ID() string {
	return BUNDLE_ENGINE_SERVICE
}

func (e *Engine) Configure(c container.IContainer) error {
	relay, ok := c.Instance(BUNDLE_RELAY_SERVICE).(Relay)
	if !ok {
		return common.UnknownError("bundle relay service does not implement bundle.Relay")
	}
	e.relay = relay
	e.tips = NewTipCalculator(relay)
	e.conf = c.GetConfig(config.RELAY_CONFIG_KEY).(*config.RelayConfig)
	e.wallet = c.GetConfig(config.WALLET_CONFIG_KEY).(*config.WalletConfig).PublicKey
	return nil
}

func (e *Engine) Start() error {
	log.Info().
		Bool("enabled", e.conf.Enabled).
		Uint64("default_tip", e.conf.DefaultTipLamports).
		Msg("[BundleEngine] started")
	return nil
}

func (e *Engine) Stop() error {
	return nil
}

// CreateBundle performs pure assembly: validates the transaction set and
// appends the tip transfer to the final transaction. No network call.
func (e *Engine) CreateBundle(txs []*solana.Transaction, opts *SendOptions) (*domain.PreparedBundle, *common.TradeError) {
	if len(txs) == 0 {
		return nil, common.ValidationError("bundle requires at least one transaction")
	}
	if len(txs) > e.conf.MaxBundleSize {
		return nil, common.BundleTooLargeError("")
	}
	if e.wallet.IsZero() {
		return nil, common.WalletNotConnectedError("")
	}

	if opts == nil {
		opts = &SendOptions{}
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = domain.BundleStrategyStandard
	}

	tip := e.resolveTip(opts, strategy)
	tipAccount := common.RelayTipAccounts[rand.Intn(len(common.RelayTipAccounts))]

	bundled := make([]*solana.Transaction, len(txs))
	copy(bundled, txs)
	bundled[len(bundled)-1] = withTipTransfer(bundled[len(bundled)-1], e.wallet, tipAccount, tip)

	return &domain.PreparedBundle{
		Transactions: bundled,
		Strategy:     strategy,
		TipLamports:  tip,
		TipAccount:   tipAccount,
		CreatedAt:    time.Now(),
	}, nil
}

// resolveTip picks the tip in priority order: explicit amount, relay-derived
// percentile, strategy preset.
func (e *Engine) resolveTip(opts *SendOptions, strategy domain.BundleStrategy) uint64 {
	if opts.TipLamports > 0 {
		return opts.TipLamports
	}
	if e.tips != nil {
		urgency := opts.Urgency
		if strategy == domain.BundleStrategyAggressive && urgency < UrgencyHigh {
			urgency = UrgencyExtreme
		}
		if res := e.tips.OptimalTip(context.Background(), urgency); res.SampleCount > 0 {
			return res.TipLamports
		}
	}
	if strategy == domain.BundleStrategyAggressive {
		return e.conf.AggressiveTipLamports
	}
	return e.conf.DefaultTipLamports
}

// SendBundle runs one logical submission of an already prepared bundle:
// NotConnected -> Rejected, else Preparing -> Simulating -> Submitting ->
// {Confirmed | Failed}. Transient relay failures are retried inside; the
// aggregate counts one bundle regardless of attempts.
func (e *Engine) SendBundle(ctx context.Context, prepared *domain.PreparedBundle, opts *SendOptions) *domain.BundleResult {
	start := time.Now()
	if opts == nil {
		opts = &SendOptions{}
	}
	progress := opts.OnProgress
	strategy := string(prepared.Strategy)

	emit := func(stage domain.BundleStage, pct int) {
		if progress != nil {
			progress(stage, pct)
		}
	}

	emit(domain.StagePreparing, 10)

	if !e.conf.Enabled || e.relay == nil || !e.relay.Connected() {
		// Immediate rejection, no relay attempt consumed.
		res := &domain.BundleResult{
			Err:             common.WalletNotConnectedError("bundle relay not connected"),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
		emit(domain.StageFailed, 100)
		e.recordOutcome(strategy, res, prepared.TipLamports)
		return res
	}

	timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(e.conf.SubmitTimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = e.conf.MaxRetries
	}

	attempts := 0
	policy := retry.Policy{
		MaxAttempts:        maxRetries,
		BaseDelay:          100 * time.Millisecond,
		ExponentialBackoff: true,
		// Simulation verdicts are slot-sensitive, so they are retried here
		// even though the taxonomy marks them non-retryable elsewhere.
		ShouldRetry: func(err error) bool {
			te, ok := common.AsTradeError(err)
			if !ok {
				return false
			}
			return te.Retryable || te.Kind == common.ErrSimulation
		},
	}

	sigs, err := retry.Do(ctx, policy, func(ctx context.Context) ([]solana.Signature, error) {
		attempts++
		if attempts > 1 {
			metrics.BundleRetries.Inc()
		}

		if !opts.SkipPreflight {
			emit(domain.StageSimulating, 20)
			sim, serr := e.relay.Simulate(ctx, prepared.Transactions)
			if serr != nil {
				return nil, common.Classify(serr)
			}
			if !sim.Success {
				metrics.SimulationFailures.WithLabelValues(simFailureReason(sim)).Inc()
				return nil, simulationError(sim)
			}
		}

		emit(domain.StageSubmitting, 50)
		out, serr := e.relay.Submit(ctx, prepared.Transactions, prepared.TipLamports, opts.SkipPreflight)
		if serr != nil {
			return nil, common.Classify(serr)
		}
		return out, nil
	})

	res := &domain.BundleResult{
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Attempts:        attempts,
	}
	if err != nil {
		res.Err = common.Classify(err)
		emit(domain.StageFailed, 100)
	} else {
		res.Success = true
		res.Signatures = sigs
		res.TipsPaid = prepared.TipLamports
		emit(domain.StageConfirmed, 100)
	}

	e.recordOutcome(strategy, res, prepared.TipLamports)
	return res
}

// SendTransactions assembles and submits in one call.
func (e *Engine) SendTransactions(ctx context.Context, txs []*solana.Transaction, opts *SendOptions) *domain.BundleResult {
	prepared, terr := e.CreateBundle(txs, opts)
	if terr != nil {
		res := &domain.BundleResult{Err: terr}
		e.recordOutcome(string(domain.BundleStrategyStandard), res, 0)
		return res
	}
	return e.SendBundle(ctx, prepared, opts)
}

// SendCompetitiveBundle is SendBundle under the aggressive preset: higher
// tip, extreme urgency, preflight skipped. It is an options overlay, not a
// separate code path, so failure semantics are identical.
func (e *Engine) SendCompetitiveBundle(ctx context.Context, txs []*solana.Transaction, opts *SendOptions) *domain.BundleResult {
	overlay := SendOptions{}
	if opts != nil {
		overlay = *opts
	}
	overlay.Strategy = domain.BundleStrategyAggressive
	overlay.Urgency = UrgencyExtreme
	overlay.SkipPreflight = true
	if overlay.TipLamports == 0 {
		overlay.TipLamports = e.conf.AggressiveTipLamports
	}
	return e.SendTransactions(ctx, txs, &overlay)
}

// recordOutcome folds one logical submission into the engine-owned
// aggregate. The count is incremented first so the running mean divides by
// the post-increment total and never counts the sample twice.
func (e *Engine) recordOutcome(strategy string, res *domain.BundleResult, tip uint64) {
	e.mu.Lock()
	e.m.TotalBundles++
	n := float64(e.m.TotalBundles)
	e.m.AverageExecutionTimeMs = (e.m.AverageExecutionTimeMs*(n-1) + float64(res.ExecutionTimeMs)) / n
	if res.Success {
		e.m.SuccessfulBundles++
		e.m.TotalTipsPaidLamports += tip
	} else {
		e.m.FailedBundles++
	}
	e.m.SuccessRatePct = float64(e.m.SuccessfulBundles) / n * 100
	e.mu.Unlock()

	status := "success"
	if !res.Success {
		status = "failure"
	}
	metrics.BundleSubmissions.WithLabelValues(strategy, status).Inc()
	metrics.BundleDuration.WithLabelValues(strategy).Observe(float64(res.ExecutionTimeMs) / 1000)
	if res.Success {
		metrics.BundleTipsPaid.Add(float64(tip))
	}
}

// Metrics returns a copy of the engine aggregate.
func (e *Engine) Metrics() domain.BundleMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m
}

func simulationError(sim *domain.SimulationResult) *common.TradeError {
	switch {
	case sim.InsufficientFunds:
		return common.InsufficientFundsError(sim.Error)
	case sim.SlippageExceeded:
		return common.ValidationError(sim.Error)
	default:
		return common.SimulationError(sim.Error)
	}
}

func simFailureReason(sim *domain.SimulationResult) string {
	switch {
	case sim.InsufficientFunds:
		return "insufficient_funds"
	case sim.SlippageExceeded:
		return "slippage"
	default:
		return "program_error"
	}
}

// withTipTransfer returns a copy of tx whose message carries an extra system
// transfer of tipLamports from the wallet to the tip account. The wallet
// collaborator re-signs the mutated transaction before relay.
func withTipTransfer(tx *solana.Transaction, from, to solana.PublicKey, tipLamports uint64) *solana.Transaction {
	msg := tx.Message

	// System program transfer: instruction index 2, lamports little-endian.
	tipData := make([]byte, 12)
	binary.LittleEndian.PutUint32(tipData[0:4], 2)
	binary.LittleEndian.PutUint64(tipData[4:12], tipLamports)

	accountMap := make(map[solana.PublicKey]uint16, len(msg.AccountKeys))
	for i, acc := range msg.AccountKeys {
		accountMap[acc] = uint16(i)
	}

	newAccounts := make([]solana.PublicKey, len(msg.AccountKeys))
	copy(newAccounts, msg.AccountKeys)

	ensure := func(key solana.PublicKey) uint16 {
		if idx, ok := accountMap[key]; ok {
			return idx
		}
		idx := uint16(len(newAccounts))
		newAccounts = append(newAccounts, key)
		accountMap[key] = idx
		return idx
	}

	// The wallet is the fee payer of the swap transaction, so it already
	// sits in the signer region of the account keys.
	fromIdx := ensure(from)
	toIdx := ensure(to)
	sysIdx := ensure(solana.SystemProgramID)

	newInstructions := make([]solana.CompiledInstruction, len(msg.Instructions)+1)
	copy(newInstructions, msg.Instructions)
	newInstructions[len(newInstructions)-1] = solana.CompiledInstruction{
		ProgramIDIndex: sysIdx,
		Accounts:       []uint16{fromIdx, toIdx},
		Data:           tipData,
	}

	return &solana.Transaction{
		Signatures: tx.Signatures,
		Message: solana.Message{
			Header:          msg.Header,
			AccountKeys:     newAccounts,
			RecentBlockhash: msg.RecentBlockhash,
			Instructions:    newInstructions,
		},
	}
}
