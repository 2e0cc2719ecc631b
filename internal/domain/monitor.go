package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// MonitorStatus is the lifecycle state of a price-target session. A session
// leaves Active exactly once and is destroyed afterwards.
type MonitorStatus string

const (
	MonitorIdle          MonitorStatus = "idle"
	MonitorActive        MonitorStatus = "active"
	MonitorTriggered     MonitorStatus = "triggered"
	MonitorStoppedByUser MonitorStatus = "stopped_by_user"
	MonitorStoppedByLoss MonitorStatus = "stopped_by_loss"
	MonitorExpired       MonitorStatus = "expired"
)

// SessionKey identifies a monitor session. At most one live session exists
// per key.
type SessionKey struct {
	Wallet     solana.PublicKey
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
}

// MonitorSnapshot is a read-only view of a session's state, safe to hand to
// collaborators while the session keeps ticking.
type MonitorSnapshot struct {
	Key              SessionKey
	Status           MonitorStatus
	TargetPrice      float64
	StopLossPct      float64
	CurrentPrice     float64
	HighestPriceSeen float64
	Ticks            int64
	StartedAt        time.Time
}
