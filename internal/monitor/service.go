package monitor

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/snipe-engine/internal/bundle"
	"github.com/hxuan190/snipe-engine/internal/common"
	"github.com/hxuan190/snipe-engine/internal/config"
	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/metrics"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

const MONITOR_SERVICE = "price-monitor-service"

// StartParams configures one price-target session. Zero values fall back to
// engine config defaults where a default exists.
type StartParams struct {
	Wallet     solana.PublicKey
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey

	TargetPrice    float64
	StopLossPct    float64
	MaxSlippageBps uint16
	ProbeAmount    *big.Int
	PollIntervalMs int
	MaxDurationMs  int // 0 disables expiry

	OnPrice PriceCallback
	OnExit  ExitCallback
}

// Service owns the session registry. At most one live session exists per
// (wallet, input, output) key; a second start on a live key is rejected, the
// caller must stop the prior session first.
type Service struct {
	container.BaseDIInstance

	quotes  *quote.Service
	engine  *bundle.Engine
	builder bundle.TransactionBuilder
	conf    *config.EngineConfig

	mu       sync.Mutex
	sessions map[domain.SessionKey]*Session
}

// NewService wires a monitor service from explicit dependencies. Used by
// Configure and directly by tests.
func NewService(quotes *quote.Service, engine *bundle.Engine, builder bundle.TransactionBuilder, conf *config.EngineConfig) *Service {
	if conf == nil {
		conf = config.DefaultEngineConfig()
	}
	return &Service{
		quotes:   quotes,
		engine:   engine,
		builder:  builder,
		conf:     conf,
		sessions: make(map[domain.SessionKey]*Session),
	}
}

func (s *Service) ID() string {
	return MONITOR_SERVICE
}

func (s *Service) Configure(c container.IContainer) error {
	s.sessions = make(map[domain.SessionKey]*Session)
	s.conf = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	s.quotes = c.Instance(quote.QUOTE_SERVICE).(*quote.Service)
	s.engine = c.Instance(bundle.BUNDLE_ENGINE_SERVICE).(*bundle.Engine)

	builder, ok := c.Instance(bundle.TX_BUILDER_SERVICE).(bundle.TransactionBuilder)
	if !ok {
		return errors.New("transaction builder service does not implement bundle.TransactionBuilder")
	}
	s.builder = builder
	return nil
}

func (s *Service) Start() error {
	log.Info().Int("poll_interval_ms", s.conf.PollIntervalMs).Msg("[PriceMonitor] started")
	return nil
}

// Stop terminates every live session.
func (s *Service) Stop() error {
	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.Stop()
	}
	return nil
}

// StartMonitor begins a session for params. The second concurrent start on
// the same key fails instead of silently replacing the prior session.
func (s *Service) StartMonitor(params *StartParams) (*Session, *common.TradeError) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	key := domain.SessionKey{
		Wallet:     params.Wallet,
		InputMint:  params.InputMint,
		OutputMint: params.OutputMint,
	}

	probe := params.ProbeAmount
	if probe == nil {
		probe = new(big.Int).SetUint64(s.conf.ProbeAmountLamports)
	}
	slippage := params.MaxSlippageBps
	if slippage == 0 {
		slippage = s.conf.DefaultSlippageBps
	}
	pollMs := params.PollIntervalMs
	if pollMs <= 0 {
		pollMs = s.conf.PollIntervalMs
	}

	sess := &Session{
		key:          key,
		targetPrice:  params.TargetPrice,
		stopLossPct:  params.StopLossPct,
		slippageBps:  slippage,
		probeAmount:  probe,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		quotes:       s.quotes,
		engine:       s.engine,
		builder:      s.builder,
		wallet:       params.Wallet,
		onPrice:      params.OnPrice,
		onExit:       params.OnExit,
		stopCh:       make(chan struct{}),
		status:       domain.MonitorActive,
		startedAt:    time.Now(),
		onDone:       s.remove,
	}
	if params.MaxDurationMs > 0 {
		sess.deadline = sess.startedAt.Add(time.Duration(params.MaxDurationMs) * time.Millisecond)
	}

	s.mu.Lock()
	if _, exists := s.sessions[key]; exists {
		s.mu.Unlock()
		return nil, common.ValidationError("a monitor session is already active for this pair, stop it first")
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	metrics.ActiveMonitorSessions.Inc()
	log.Info().
		Str("input", key.InputMint.String()).
		Str("output", key.OutputMint.String()).
		Float64("target_price", params.TargetPrice).
		Float64("stop_loss_pct", params.StopLossPct).
		Int("poll_interval_ms", pollMs).
		Msg("[PriceMonitor] session started")

	go sess.run()
	return sess, nil
}

// StopMonitor requests termination of the session for key. Returns false when
// no live session matches. Safe to call repeatedly.
func (s *Service) StopMonitor(key domain.SessionKey) bool {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.Stop()
	return true
}

// Snapshot returns the state of the live session for key, or nil.
func (s *Service) Snapshot(key domain.SessionKey) *domain.MonitorSnapshot {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.Snapshot()
}

// Snapshots returns the state of every live session.
func (s *Service) Snapshots() []*domain.MonitorSnapshot {
	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	out := make([]*domain.MonitorSnapshot, 0, len(live))
	for _, sess := range live {
		out = append(out, sess.Snapshot())
	}
	return out
}

// ActiveSessionCount returns the number of live sessions.
func (s *Service) ActiveSessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) remove(sess *Session) {
	s.mu.Lock()
	if current, ok := s.sessions[sess.key]; ok && current == sess {
		delete(s.sessions, sess.key)
	}
	s.mu.Unlock()
}

func validateParams(params *StartParams) *common.TradeError {
	switch {
	case params == nil:
		return common.ValidationError("monitor params are nil")
	case params.InputMint.IsZero() || params.OutputMint.IsZero():
		return common.ValidationError("input and output mints are required")
	case params.InputMint.Equals(params.OutputMint):
		return common.ValidationError("input and output mints must differ")
	case params.TargetPrice <= 0:
		return common.ValidationError("target price must be positive")
	case params.StopLossPct < 0 || params.StopLossPct >= 100:
		return common.ValidationError("stop loss percent must be within [0, 100)")
	default:
		return nil
	}
}
