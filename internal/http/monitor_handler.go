package http

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/http/httputil"
	"github.com/hxuan190/snipe-engine/internal/monitor"
)

type MonitorHandler struct {
	monitorSvc *monitor.Service
}

func NewMonitorHandler(monitorSvc *monitor.Service) *MonitorHandler {
	return &MonitorHandler{monitorSvc: monitorSvc}
}

func (h *MonitorHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listSessions)
	pub.GET("/status", h.sessionStatus)
	private.POST("/start", h.startSession)
	private.POST("/stop", h.stopSession)
}

func (h *MonitorHandler) Root() string {
	return "/monitor"
}

// MonitorStartRequest starts a price-target session
type MonitorStartRequest struct {
	Wallet     string `json:"wallet" binding:"required"`
	InputMint  string `json:"inputMint" binding:"required"`
	OutputMint string `json:"outputMint" binding:"required"`

	// Target implied price; the session triggers at or above it
	TargetPrice float64 `json:"targetPrice" binding:"required" example:"0.000012"`

	// Stop-loss drawdown from the highest seen price, in percent; 0 disables
	StopLossPct float64 `json:"stopLossPct" example:"10"`

	// Probe amount in base units; engine default when empty
	ProbeAmount string `json:"probeAmount" example:"1000000000"`

	MaxSlippageBps uint16 `json:"maxSlippageBps" example:"50"`
	PollIntervalMs int    `json:"pollIntervalMs" example:"1000"`
	MaxDurationMs  int    `json:"maxDurationMs" example:"0"`
}

type monitorKeyRequest struct {
	Wallet     string `json:"wallet" binding:"required"`
	InputMint  string `json:"inputMint" binding:"required"`
	OutputMint string `json:"outputMint" binding:"required"`
}

// MonitorSnapshotResponse is a read-only view of one session
type MonitorSnapshotResponse struct {
	Wallet           string  `json:"wallet"`
	InputMint        string  `json:"inputMint"`
	OutputMint       string  `json:"outputMint"`
	Status           string  `json:"status"`
	TargetPrice      float64 `json:"targetPrice"`
	StopLossPct      float64 `json:"stopLossPct"`
	CurrentPrice     float64 `json:"currentPrice"`
	HighestPriceSeen float64 `json:"highestPriceSeen"`
	Ticks            int64   `json:"ticks"`
	StartedAt        int64   `json:"startedAt"`
}

func (h *MonitorHandler) startSession(c *gin.Context) {
	var req MonitorStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	key, ok := parseKey(c, req.Wallet, req.InputMint, req.OutputMint)
	if !ok {
		return
	}

	params := &monitor.StartParams{
		Wallet:         key.Wallet,
		InputMint:      key.InputMint,
		OutputMint:     key.OutputMint,
		TargetPrice:    req.TargetPrice,
		StopLossPct:    req.StopLossPct,
		MaxSlippageBps: req.MaxSlippageBps,
		PollIntervalMs: req.PollIntervalMs,
		MaxDurationMs:  req.MaxDurationMs,
	}
	if req.ProbeAmount != "" {
		probe, ok := new(big.Int).SetString(req.ProbeAmount, 10)
		if !ok || probe.Sign() <= 0 {
			httputil.BadRequest(c, "invalid probeAmount: must be a positive integer")
			return
		}
		params.ProbeAmount = probe
	}

	sess, terr := h.monitorSvc.StartMonitor(params)
	if terr != nil {
		httputil.TaggedError(c, statusFor(string(terr.Kind)), string(terr.Kind), terr.Message)
		return
	}
	httputil.Success(c, snapshotResponse(sess.Snapshot()))
}

func (h *MonitorHandler) stopSession(c *gin.Context) {
	var req monitorKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	key, ok := parseKey(c, req.Wallet, req.InputMint, req.OutputMint)
	if !ok {
		return
	}

	if !h.monitorSvc.StopMonitor(key) {
		httputil.NotFound(c, "no active session for this pair")
		return
	}
	httputil.Success(c, gin.H{"stopped": true})
}

func (h *MonitorHandler) listSessions(c *gin.Context) {
	snaps := h.monitorSvc.Snapshots()
	out := make([]*MonitorSnapshotResponse, len(snaps))
	for i, snap := range snaps {
		out[i] = snapshotResponse(snap)
	}
	httputil.Success(c, gin.H{
		"activeSessions": h.monitorSvc.ActiveSessionCount(),
		"sessions":       out,
	})
}

func (h *MonitorHandler) sessionStatus(c *gin.Context) {
	key, ok := parseKey(c, c.Query("wallet"), c.Query("inputMint"), c.Query("outputMint"))
	if !ok {
		return
	}

	snap := h.monitorSvc.Snapshot(key)
	if snap == nil {
		httputil.NotFound(c, "no active session for this pair")
		return
	}
	httputil.Success(c, snapshotResponse(snap))
}

func parseKey(c *gin.Context, wallet, input, output string) (domain.SessionKey, bool) {
	w, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		httputil.BadRequest(c, "invalid wallet address")
		return domain.SessionKey{}, false
	}
	in, err := solana.PublicKeyFromBase58(input)
	if err != nil {
		httputil.BadRequest(c, "invalid inputMint address")
		return domain.SessionKey{}, false
	}
	out, err := solana.PublicKeyFromBase58(output)
	if err != nil {
		httputil.BadRequest(c, "invalid outputMint address")
		return domain.SessionKey{}, false
	}
	return domain.SessionKey{Wallet: w, InputMint: in, OutputMint: out}, true
}

func snapshotResponse(snap *domain.MonitorSnapshot) *MonitorSnapshotResponse {
	return &MonitorSnapshotResponse{
		Wallet:           snap.Key.Wallet.String(),
		InputMint:        snap.Key.InputMint.String(),
		OutputMint:       snap.Key.OutputMint.String(),
		Status:           string(snap.Status),
		TargetPrice:      snap.TargetPrice,
		StopLossPct:      snap.StopLossPct,
		CurrentPrice:     snap.CurrentPrice,
		HighestPriceSeen: snap.HighestPriceSeen,
		Ticks:            snap.Ticks,
		StartedAt:        snap.StartedAt.UnixMilli(),
	}
}
