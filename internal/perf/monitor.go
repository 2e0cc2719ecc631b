// Package perf aggregates per-trade and per-strategy execution statistics.
package perf

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
)

const PERF_MONITOR_SERVICE = "performance-monitor-service"

// Monitor owns the strategy-id -> aggregate mapping. Counts never lose an
// update: all mutation happens under one writer lock, reads get copies.
type Monitor struct {
	container.BaseDIInstance

	mu         sync.RWMutex
	strategies map[string]*domain.StrategyPerformance

	quoteTotal     int64
	quoteCacheHits int64
	quoteAvgMs     float64

	store *Store
	conf  *config.PerfConfig
}

// NewMonitor builds a monitor with no persistence. Used by Configure and
// directly by tests.
func NewMonitor() *Monitor {
	return &Monitor{strategies: make(map[string]*domain.StrategyPerformance)}
}

func (m *Monitor) ID() string {
	return PERF_MONITOR_SERVICE
}

func (m *Monitor) Configure(c container.IContainer) error {
	m.strategies = make(map[string]*domain.StrategyPerformance)
	m.conf = c.GetConfig(config.PERF_CONFIG_KEY).(*config.PerfConfig)
	return nil
}

func (m *Monitor) Start() error {
	if m.conf != nil && m.conf.PersistenceEnabled {
		store, err := NewStore(m.conf.DBPath)
		if err != nil {
			return err
		}
		m.store = store

		records, err := store.LoadAll()
		if err != nil {
			return err
		}
		for _, rec := range records {
			m.apply(rec)
		}
		log.Info().Int("records", len(records)).Msg("[PerformanceMonitor] replayed persisted trade records")
	}
	return nil
}

func (m *Monitor) Stop() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Register creates an empty aggregate for id so the strategy shows up in
// metrics before its first trade. Idempotent.
func (m *Monitor) Register(id string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[id]; !ok {
		m.strategies[id] = &domain.StrategyPerformance{StrategyID: id}
	}
}

// RecordTrade appends one trade outcome and folds it into the strategy's
// aggregate. Safe for concurrent use from independent sessions.
func (m *Monitor) RecordTrade(rec *domain.PerformanceRecord) {
	if rec == nil || rec.StrategyID == "" {
		return
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	m.mu.Lock()
	m.apply(rec)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Append(rec); err != nil {
			log.Error().Err(err).Str("strategy", rec.StrategyID).Msg("[PerformanceMonitor] failed to persist trade record")
		}
	}
}

// apply folds rec into the aggregate. Caller holds the write lock (or owns
// the monitor exclusively during replay).
func (m *Monitor) apply(rec *domain.PerformanceRecord) {
	sp, ok := m.strategies[rec.StrategyID]
	if !ok {
		sp = &domain.StrategyPerformance{StrategyID: rec.StrategyID}
		m.strategies[rec.StrategyID] = sp
	}

	sp.TotalTrades++
	if rec.Success {
		sp.SuccessfulTrades++
	} else {
		sp.FailedTrades++
	}

	// Running mean over the post-increment count.
	n := float64(sp.TotalTrades)
	sp.AverageExecutionTimeMs = (sp.AverageExecutionTimeMs*(n-1) + float64(rec.ExecutionTimeMs)) / n

	sp.ProfitLossLamports += rec.ProfitLamports
	sp.TotalInvestedLamports += rec.AmountLamports

	sp.SuccessRatePct = float64(sp.SuccessfulTrades) / n * 100
	if sp.TotalInvestedLamports > 0 {
		sp.ROIPct = float64(sp.ProfitLossLamports) / float64(sp.TotalInvestedLamports) * 100
	}
	if sp.FailedTrades > 0 {
		sp.WinLossRatio = float64(sp.SuccessfulTrades) / float64(sp.FailedTrades)
	} else {
		sp.WinLossRatio = float64(sp.SuccessfulTrades)
	}
}

// RecordQuote folds one quote acquisition into the quote-layer stats.
func (m *Monitor) RecordQuote(latencyMs int64, cacheHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quoteTotal++
	if cacheHit {
		m.quoteCacheHits++
	}
	n := float64(m.quoteTotal)
	m.quoteAvgMs = (m.quoteAvgMs*(n-1) + float64(latencyMs)) / n
}

// StrategyPerformance returns a copy of the aggregate for id, or nil when the
// strategy has never recorded a trade.
func (m *Monitor) StrategyPerformance(id string) *domain.StrategyPerformance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sp, ok := m.strategies[id]
	if !ok {
		return nil
	}
	cp := *sp
	return &cp
}

// Metrics returns the full observable snapshot. Bundle metrics are filled in
// by the caller that owns the bundle engine.
func (m *Monitor) Metrics() *domain.PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := &domain.PerformanceMetrics{
		Strategies: make(map[string]*domain.StrategyPerformance, len(m.strategies)),
	}
	for id, sp := range m.strategies {
		cp := *sp
		out.Strategies[id] = &cp
	}

	out.Quotes = domain.QuoteStats{
		TotalQuotes:      m.quoteTotal,
		CacheHits:        m.quoteCacheHits,
		AverageLatencyMs: m.quoteAvgMs,
	}
	if m.quoteTotal > 0 {
		out.Quotes.CacheHitRatePct = float64(m.quoteCacheHits) / float64(m.quoteTotal) * 100
	}
	return out
}
