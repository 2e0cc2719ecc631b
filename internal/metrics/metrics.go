package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snipe_quote_duration_seconds",
		Help:    "Quote acquisition duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snipe_quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	QuoteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snipe_quote_cache_misses_total",
		Help: "Total number of quote cache misses",
	})

	QuoteCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snipe_quote_cache_size",
		Help: "Current number of entries in the quote cache",
	})

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipe_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	// Bundle metrics
	BundleSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_bundle_submissions_total",
			Help: "Total number of bundle submissions",
		},
		[]string{"strategy", "status"},
	)

	BundleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipe_bundle_duration_seconds",
			Help:    "Bundle submission duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	BundleTipsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snipe_bundle_tips_lamports_total",
		Help: "Total tips paid across confirmed bundles, in lamports",
	})

	BundleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snipe_bundle_retries_total",
		Help: "Total number of relay attempts beyond the first per bundle",
	})

	SimulationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_simulation_failures_total",
			Help: "Total number of failed bundle simulations",
		},
		[]string{"reason"},
	)

	// Monitor metrics
	ActiveMonitorSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snipe_monitor_sessions_active",
		Help: "Number of active price-target monitor sessions",
	})

	MonitorTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_monitor_ticks_total",
			Help: "Total number of monitor polling ticks",
		},
		[]string{"result"},
	)

	MonitorExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_monitor_exits_total",
			Help: "Total number of monitor session exits",
		},
		[]string{"reason"},
	)

	// Strategy metrics
	StrategyTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_strategy_triggers_total",
			Help: "Total number of strategy driver trade triggers",
		},
		[]string{"strategy"},
	)

	StrategyEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_strategy_evaluations_total",
			Help: "Total number of strategy driver evaluations",
		},
		[]string{"strategy"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipe_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
