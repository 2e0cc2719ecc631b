package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/snipe-engine/internal/common"
)

// BundleStrategy selects the tipping/priority preset for a submission.
type BundleStrategy string

const (
	BundleStrategyStandard   BundleStrategy = "standard"
	BundleStrategyAggressive BundleStrategy = "aggressive"
)

// BundleStage is a checkpoint of the submission state machine. Progress
// callbacks fire on each transition so UI layers can render progress without
// polling.
type BundleStage string

const (
	StagePreparing  BundleStage = "preparing"
	StageSimulating BundleStage = "simulating"
	StageSubmitting BundleStage = "submitting"
	StageConfirmed  BundleStage = "confirmed"
	StageFailed     BundleStage = "failed"
)

// BundleStatus is the relay-reported status of a submitted bundle.
type BundleStatus string

const (
	BundleStatusPending   BundleStatus = "pending"
	BundleStatusConfirmed BundleStatus = "confirmed"
	BundleStatusFailed    BundleStatus = "failed"
)

// ProgressFunc receives submission checkpoints (10/20/50/100 percent).
type ProgressFunc func(stage BundleStage, percent int)

// PreparedBundle is the output of pure bundle assembly: an ordered
// transaction set with the tip transfer already appended. No network call is
// involved in producing it.
type PreparedBundle struct {
	Transactions []*solana.Transaction
	Strategy     BundleStrategy
	TipLamports  uint64
	TipAccount   solana.PublicKey
	CreatedAt    time.Time
}

// BundleResult is the terminal, immutable outcome of one logical bundle
// submission (which may span several relay attempts).
type BundleResult struct {
	Success         bool
	Signatures      []solana.Signature
	Err             *common.TradeError
	ExecutionTimeMs int64
	TipsPaid        uint64
	Attempts        int
}

// SimulationResult models the relay's pre-flight simulation verdict.
type SimulationResult struct {
	Success              bool     `json:"success"`
	Logs                 []string `json:"logs"`
	ComputeUnitsConsumed uint64   `json:"computeUnitsConsumed"`
	Error                string   `json:"error,omitempty"`

	InsufficientFunds bool `json:"insufficientFunds"`
	SlippageExceeded  bool `json:"slippageExceeded"`
}

// BundleMetrics is the engine-owned aggregate over all submissions. The
// average is a running mean updated with the post-increment count so a sample
// is never counted twice.
type BundleMetrics struct {
	TotalBundles           int64   `json:"totalBundles"`
	SuccessfulBundles      int64   `json:"successfulBundles"`
	FailedBundles          int64   `json:"failedBundles"`
	AverageExecutionTimeMs float64 `json:"averageExecutionTimeMs"`
	TotalTipsPaidLamports  uint64  `json:"totalTipsPaidLamports"`
	SuccessRatePct         float64 `json:"successRatePct"`
}

// SwapResult is the outcome of the one-shot snipe execution path.
type SwapResult struct {
	Success         bool
	Signatures      []solana.Signature
	Err             *common.TradeError
	ExecutionTimeMs int64
	Quote           *Quote
	TipsPaid        uint64
}
