package domain

import "time"

// PerformanceRecord is one trade outcome attributed to a strategy.
// Append-only; aggregation happens in the performance monitor.
type PerformanceRecord struct {
	StrategyID      string    `json:"strategyId"`
	Success         bool      `json:"success"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	ProfitLamports  int64     `json:"profitLamports"`
	AmountLamports  uint64    `json:"amountLamports,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// StrategyPerformance aggregates all records for one strategy id via running
// weighted averages. SuccessfulTrades + FailedTrades == TotalTrades holds
// after every record.
type StrategyPerformance struct {
	StrategyID             string  `json:"strategyId"`
	TotalTrades            int64   `json:"totalTrades"`
	SuccessfulTrades       int64   `json:"successfulTrades"`
	FailedTrades           int64   `json:"failedTrades"`
	AverageExecutionTimeMs float64 `json:"averageExecutionTimeMs"`
	ProfitLossLamports     int64   `json:"profitLossLamports"`
	TotalInvestedLamports  uint64  `json:"totalInvestedLamports"`
	SuccessRatePct         float64 `json:"successRatePct"`
	ROIPct                 float64 `json:"roiPct"`
	WinLossRatio           float64 `json:"winLossRatio"`
}

// QuoteStats aggregates quote-layer observations: average provider latency
// and cache hit rate.
type QuoteStats struct {
	TotalQuotes      int64   `json:"totalQuotes"`
	CacheHits        int64   `json:"cacheHits"`
	AverageLatencyMs float64 `json:"averageLatencyMs"`
	CacheHitRatePct  float64 `json:"cacheHitRatePct"`
}

// PerformanceMetrics is the full observable snapshot exposed to
// collaborators.
type PerformanceMetrics struct {
	Strategies map[string]*StrategyPerformance `json:"strategies"`
	Quotes     QuoteStats                      `json:"quotes"`
	Bundles    BundleMetrics                   `json:"bundles"`
}
