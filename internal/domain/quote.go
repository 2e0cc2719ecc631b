package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/common"
)

// QuoteRequest identifies a route lookup. Every field participates in the
// cache key: changing any of them must produce a different key.
type QuoteRequest struct {
	InputMint        solana.PublicKey
	OutputMint       solana.PublicKey
	Amount           *big.Int
	SlippageBps      uint16
	OnlyDirectRoutes bool
}

// RouteHop describes a single hop of a resolved route.
type RouteHop struct {
	PoolAddress solana.PublicKey
	PoolType    string
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Percent     uint8
}

// Quote is a resolved swap route. Immutable once returned by the route
// provider; the implied unit price is always derived from the amounts, never
// stored, so it cannot drift.
type Quote struct {
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	InAmount       *big.Int
	OutAmount      *big.Int
	PriceImpactBps uint16
	Route          []RouteHop
	ContextSlot    uint64
	LatencyMs      int64
}

// ImpliedPrice returns the unit price of the output asset denominated in the
// input asset (inAmount / outAmount).
func (q *Quote) ImpliedPrice() float64 {
	if q == nil || q.InAmount == nil || q.OutAmount == nil || q.OutAmount.Sign() == 0 {
		return 0
	}
	in, _ := new(big.Float).SetInt(q.InAmount).Float64()
	out, _ := new(big.Float).SetInt(q.OutAmount).Float64()
	return in / out
}

// QuoteResult is the tagged result of a quote acquisition. Exactly one of
// Quote and Err is set.
type QuoteResult struct {
	Success         bool
	Quote           *Quote
	Err             *common.TradeError
	ExecutionTimeMs int64
	CacheHit        bool
}
