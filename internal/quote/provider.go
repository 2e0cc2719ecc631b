package quote

import (
	"context"

	"github.com/hxuan190/snipe-engine/internal/domain"
)

// RouteProvider resolves an optimal swap route for a token pair. Concrete
// backends live outside the engine; tests and the dev runtime inject
// simulated ones.
type RouteProvider interface {
	Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error)
}

// ProviderFunc adapts a function to the RouteProvider interface.
type ProviderFunc func(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error)

func (f ProviderFunc) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	return f(ctx, req)
}
