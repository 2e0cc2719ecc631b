// Package sim provides in-process stand-ins for the route provider, bundle
// relay and transaction builder so the engine runs end to end without live
// infrastructure.
package sim

import (
	"context"
	"hash/fnv"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

// RouteProvider serves synthetic quotes. Each pair gets a stable base price
// derived from the mint addresses and drifts as a small multiplicative random
// walk, so monitors and strategies observe believable movement.
type RouteProvider struct {
	container.BaseDIInstance

	mu     sync.Mutex
	prices map[[64]byte]float64
	rng    *rand.Rand

	// LatencyMs adds a fixed per-quote delay to exercise timeout paths.
	LatencyMs int
	// FailureRate in [0,1) makes that fraction of quotes fail transiently.
	FailureRate float64

	slot uint64
}

func NewRouteProvider() *RouteProvider {
	return &RouteProvider{
		prices: make(map[[64]byte]float64),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RouteProvider) ID() string {
	return quote.ROUTE_PROVIDER_SERVICE
}

func (p *RouteProvider) Configure(c container.IContainer) error {
	return nil
}

func (p *RouteProvider) Start() error {
	log.Info().Msg("[SimRouteProvider] started, serving synthetic routes")
	return nil
}

func (p *RouteProvider) Stop() error {
	return nil
}

func (p *RouteProvider) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	if p.LatencyMs > 0 {
		select {
		case <-time.After(time.Duration(p.LatencyMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailureRate > 0 && p.rng.Float64() < p.FailureRate {
		return nil, errTransient
	}

	price := p.step(req)
	p.slot++

	out, _ := new(big.Float).Quo(new(big.Float).SetInt(req.Amount), big.NewFloat(price)).Int(nil)
	if out.Sign() <= 0 {
		out = big.NewInt(1)
	}

	return &domain.Quote{
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InAmount:       new(big.Int).Set(req.Amount),
		OutAmount:      out,
		PriceImpactBps: uint16(p.rng.Intn(40)),
		Route: []domain.RouteHop{{
			PoolType:   "sim-amm",
			InputMint:  req.InputMint,
			OutputMint: req.OutputMint,
			Percent:    100,
		}},
		ContextSlot: p.slot,
	}, nil
}

// step returns the pair's next price. Caller holds the lock.
func (p *RouteProvider) step(req *domain.QuoteRequest) float64 {
	var key [64]byte
	copy(key[:32], req.InputMint[:])
	copy(key[32:], req.OutputMint[:])

	price, ok := p.prices[key]
	if !ok {
		price = basePrice(key)
	}
	// Drift within roughly ±0.5% per observation.
	price *= 1 + (p.rng.Float64()-0.5)/100
	p.prices[key] = price
	return price
}

// basePrice derives a stable starting price in (0.000001, ~0.01) from the
// pair identity.
func basePrice(key [64]byte) float64 {
	h := fnv.New64a()
	h.Write(key[:])
	return 0.000001 * (1 + float64(h.Sum64()%10_000))
}
