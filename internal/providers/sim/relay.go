package sim

import (
	"context"
	"crypto/rand"
	"errors"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/domain"
)

var errTransient = errors.New("sim: transient network error")

// Relay is an in-process bundle relay: simulations pass, submissions return
// fresh signatures, recent tips follow a plausible distribution.
type Relay struct {
	container.BaseDIInstance

	mu  sync.Mutex
	rng *mrand.Rand

	// SimFailureRate in [0,1) makes that fraction of simulations report a
	// program error, exercising the retry path.
	SimFailureRate float64

	bundles map[string]domain.BundleStatus
}

func NewRelay() *Relay {
	return &Relay{
		rng:     mrand.New(mrand.NewSource(time.Now().UnixNano())),
		bundles: make(map[string]domain.BundleStatus),
	}
}

func (r *Relay) ID() string {
	return bundle.BUNDLE_RELAY_SERVICE
}

func (r *Relay) Configure(c container.IContainer) error {
	return nil
}

func (r *Relay) Start() error {
	log.Info().Msg("[SimRelay] started, accepting bundles in-process")
	return nil
}

func (r *Relay) Stop() error {
	return nil
}

func (r *Relay) Connected() bool {
	return true
}

func (r *Relay) Simulate(ctx context.Context, txs []*solana.Transaction) (*domain.SimulationResult, error) {
	r.mu.Lock()
	fail := r.SimFailureRate > 0 && r.rng.Float64() < r.SimFailureRate
	r.mu.Unlock()

	if fail {
		return &domain.SimulationResult{
			Success: false,
			Error:   "simulation failed: program error: custom 0x1771",
			Logs:    []string{"Program sim-amm invoke [1]", "Program sim-amm failed: custom program error: 0x1771"},
		}, nil
	}
	return &domain.SimulationResult{
		Success:              true,
		ComputeUnitsConsumed: 80_000 + uint64(len(txs))*40_000,
		Logs:                 []string{"Program sim-amm invoke [1]", "Program sim-amm success"},
	}, nil
}

func (r *Relay) Submit(ctx context.Context, txs []*solana.Transaction, tipLamports uint64, skipPreflight bool) ([]solana.Signature, error) {
	sigs := make([]solana.Signature, len(txs))
	for i := range sigs {
		rand.Read(sigs[i][:])
	}

	r.mu.Lock()
	r.bundles[sigs[0].String()] = domain.BundleStatusConfirmed
	r.mu.Unlock()

	log.Debug().
		Int("transactions", len(txs)).
		Uint64("tip_lamports", tipLamports).
		Bool("skip_preflight", skipPreflight).
		Msg("[SimRelay] bundle accepted")
	return sigs, nil
}

func (r *Relay) Status(ctx context.Context, bundleID string) (domain.BundleStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status, ok := r.bundles[bundleID]; ok {
		return status, nil
	}
	return domain.BundleStatusPending, nil
}

// RecentTips serves a spread of recent tip amounts so the percentile
// calculator has something realistic to chew on.
func (r *Relay) RecentTips(ctx context.Context) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tips := make([]uint64, 100)
	for i := range tips {
		// Mostly small tips with a heavy tail.
		tip := uint64(1_000 + r.rng.Intn(20_000))
		if r.rng.Intn(10) == 0 {
			tip *= uint64(10 + r.rng.Intn(40))
		}
		tips[i] = tip
	}
	return tips, nil
}
