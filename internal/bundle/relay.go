// Package bundle assembles and submits atomically-relayed transaction
// bundles with competitive tipping.
package bundle

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/domain"
)

const (
	// BUNDLE_RELAY_SERVICE is the container id a Relay implementation must
	// register under.
	BUNDLE_RELAY_SERVICE = "bundle-relay-service"

	// TX_BUILDER_SERVICE is the container id of the transaction builder
	// collaborator.
	TX_BUILDER_SERVICE = "tx-builder-service"
)

// Relay is the black-box bundle relay capability. Concrete backends live
// outside the engine; tests and the dev runtime inject simulated ones.
type Relay interface {
	// Connected reports whether the relay is reachable. A disconnected
	// relay rejects submissions without consuming an attempt.
	Connected() bool

	// Simulate runs the relay's pre-flight check over the transaction set.
	Simulate(ctx context.Context, txs []*solana.Transaction) (*domain.SimulationResult, error)

	// Submit relays the transaction set with the given tip.
	Submit(ctx context.Context, txs []*solana.Transaction, tipLamports uint64, skipPreflight bool) ([]solana.Signature, error)

	// Status reports the relay-side state of a submitted bundle.
	Status(ctx context.Context, bundleID string) (domain.BundleStatus, error)

	// RecentTips returns recently landed tip amounts in lamports, newest
	// last. Used by the competitive tip strategy; may return an empty
	// slice.
	RecentTips(ctx context.Context) ([]uint64, error)
}

// TransactionBuilder turns a resolved quote into unsigned swap transactions.
// Signing belongs to the wallet collaborator and never enters the engine.
type TransactionBuilder interface {
	BuildSwap(ctx context.Context, q *domain.Quote, wallet solana.PublicKey) ([]*solana.Transaction, error)
}
