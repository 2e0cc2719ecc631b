package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
	"github.com/hxuan190/snipe-engine/internal/perf"
	"github.com/hxuan190/snipe-engine/internal/retry"
)

const (
	QUOTE_SERVICE = "quote-service"

	// ROUTE_PROVIDER_SERVICE is the container id a RouteProvider
	// implementation must register under.
	ROUTE_PROVIDER_SERVICE = "route-provider-service"
)

// Options tweak a single GetQuote call.
type Options struct {
	BypassCache bool
	Retry       *retry.Policy
}

// Service resolves swap routes through the configured RouteProvider with
// caching, bounded retry and taxonomy classification.
type Service struct {
	container.BaseDIInstance

	provider RouteProvider
	cache    *Cache
	perfMon  *perf.Monitor
	conf     *config.EngineConfig
}

// NewService wires a quote service from explicit dependencies. Used by
// Configure and directly by tests.
func NewService(provider RouteProvider, cache *Cache, perfMon *perf.Monitor, conf *config.EngineConfig) *Service {
	if cache == nil {
		cache = NewCache()
	}
	if conf == nil {
		conf = config.DefaultEngineConfig()
	}
	return &Service{provider: provider, cache: cache, perfMon: perfMon, conf: conf}
}

func (s *Service) ID() string {
	return QUOTE_SERVICE
}

func (s *Service) Configure(c container.IContainer) error {
	provider, ok := c.Instance(ROUTE_PROVIDER_SERVICE).(RouteProvider)
	if !ok {
		return errors.New("route provider service does not implement quote.RouteProvider")
	}
	s.provider = provider
	s.conf = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	s.perfMon = c.Instance(perf.PERF_MONITOR_SERVICE).(*perf.Monitor)
	s.cache = NewCache()
	return nil
}

func (s *Service) Start() error {
	log.Info().
		Int("ttl_ms", s.conf.QuoteTTLMs).
		Uint16("impact_ceiling_bps", s.conf.PriceImpactCeilingBps).
		Msg("[QuoteService] started")
	return nil
}

func (s *Service) Stop() error {
	return nil
}

// TTL returns the configured cache TTL.
func (s *Service) TTL() time.Duration {
	return time.Duration(s.conf.QuoteTTLMs) * time.Millisecond
}

// Cache exposes the underlying route quote cache for observability.
func (s *Service) Cache() *Cache {
	return s.cache
}

func (s *Service) retryPolicy(opts *Options) retry.Policy {
	if opts != nil && opts.Retry != nil {
		return *opts.Retry
	}
	return retry.Policy{
		MaxAttempts:        s.conf.RetryMaxAttempts,
		BaseDelay:          time.Duration(s.conf.RetryBaseDelayMs) * time.Millisecond,
		ExponentialBackoff: true,
	}
}

// GetQuote acquires a route for req. Expected failures come back as a tagged
// result, never as a raised error. A cache hit short-circuits everything,
// including retry; an over-impact quote is rejected before it can be cached.
func (s *Service) GetQuote(ctx context.Context, req *domain.QuoteRequest, opts *Options) *domain.QuoteResult {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return s.finish(start, &domain.QuoteResult{Err: err}, false)
	}

	if opts == nil || !opts.BypassCache {
		if cached := s.cache.Get(req); cached != nil {
			return s.finish(start, &domain.QuoteResult{Success: true, Quote: cached, CacheHit: true}, true)
		}
	}

	q, err := retry.Do(ctx, s.retryPolicy(opts), func(ctx context.Context) (*domain.Quote, error) {
		quote, qerr := s.provider.Quote(ctx, req)
		if qerr != nil {
			return nil, common.Classify(qerr)
		}
		return quote, nil
	})
	if err != nil {
		te := common.Classify(err)
		log.Warn().
			Str("input", req.InputMint.String()).
			Str("output", req.OutputMint.String()).
			Str("kind", string(te.Kind)).
			Msg("[QuoteService] quote acquisition failed")
		return s.finish(start, &domain.QuoteResult{Err: te}, false)
	}
	if q == nil {
		return s.finish(start, &domain.QuoteResult{Err: common.UnknownError("route provider returned no quote")}, false)
	}

	severity := ImpactSeverity(q.PriceImpactBps)
	metrics.PriceImpact.WithLabelValues(severity).Observe(float64(q.PriceImpactBps))

	// Price-impact guard: checked before caching so an over-impact route is
	// never served as a valid cached entry.
	if s.conf.PriceImpactCeilingBps > 0 && q.PriceImpactBps > s.conf.PriceImpactCeilingBps {
		te := common.ValidationError(fmt.Sprintf(
			"price impact %d bps exceeds ceiling %d bps", q.PriceImpactBps, s.conf.PriceImpactCeilingBps))
		return s.finish(start, &domain.QuoteResult{Err: te}, false)
	}

	q.LatencyMs = time.Since(start).Milliseconds()
	s.cache.Put(req, q, s.TTL())

	return s.finish(start, &domain.QuoteResult{Success: true, Quote: q}, false)
}

// finish stamps the execution time and records quote-layer metrics on every
// path out of GetQuote.
func (s *Service) finish(start time.Time, res *domain.QuoteResult, cacheHit bool) *domain.QuoteResult {
	elapsed := time.Since(start)
	res.ExecutionTimeMs = elapsed.Milliseconds()

	status := "success"
	if !res.Success {
		status = "failure"
	}
	metrics.QuoteRequests.WithLabelValues(status).Inc()
	metrics.QuoteDuration.Observe(elapsed.Seconds())

	if s.perfMon != nil {
		s.perfMon.RecordQuote(res.ExecutionTimeMs, cacheHit)
	}
	return res
}

func validateRequest(req *domain.QuoteRequest) *common.TradeError {
	switch {
	case req == nil:
		return common.ValidationError("quote request is nil")
	case req.InputMint.IsZero() || req.OutputMint.IsZero():
		return common.ValidationError("input and output mints are required")
	case req.InputMint.Equals(req.OutputMint):
		return common.ValidationError("input and output mints must differ")
	case req.Amount == nil || req.Amount.Sign() <= 0:
		return common.ValidationError("amount must be positive")
	default:
		return nil
	}
}
