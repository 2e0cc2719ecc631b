package http

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/snipe-engine/internal/http/httputil"
	"github.com/hxuan190/snipe-engine/internal/snipe"
)

type SnipeHandler struct {
	snipeSvc *snipe.Service
}

func NewSnipeHandler(snipeSvc *snipe.Service) *SnipeHandler {
	return &SnipeHandler{snipeSvc: snipeSvc}
}

func (h *SnipeHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	private.POST("/execute", h.execute)
}

func (h *SnipeHandler) Root() string {
	return "/snipe"
}

// SnipeExecuteRequest is the one-shot execution input
type SnipeExecuteRequest struct {
	InputMint  string `json:"inputMint" binding:"required"`
	OutputMint string `json:"outputMint" binding:"required"`

	// Amount in smallest token units
	Amount string `json:"amount" binding:"required" example:"1000000000"`

	// Reject the trade when the implied price exceeds this; 0 disables
	MaxPrice float64 `json:"maxPrice" example:"0.000012"`

	// Slippage tolerance in basis points, engine default when 0
	SlippageBps uint16 `json:"slippageBps" example:"50"`

	// Explicit priority fee in lamports, engine-derived when 0
	TipLamports uint64 `json:"tipLamports" example:"10000"`

	// Aggressive preset: higher tip, preflight simulation skipped
	Competitive bool `json:"competitive"`
}

// SnipeExecuteResponse reports the swap outcome
type SnipeExecuteResponse struct {
	Success         bool     `json:"success"`
	Signatures      []string `json:"signatures,omitempty"`
	AmountIn        string   `json:"amountIn,omitempty"`
	AmountOut       string   `json:"amountOut,omitempty"`
	ImpliedPrice    float64  `json:"impliedPrice,omitempty"`
	TipsPaid        uint64   `json:"tipsPaidLamports"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`
}

// execute runs the immediate snipe path: quote, price guard, build, submit.
//
//	@Summary	Execute a one-shot snipe
//	@Tags		snipe
//	@Accept		json
//	@Produce	json
//	@Param		request	body	SnipeExecuteRequest	true	"Snipe parameters"
//	@Success	200	{object}	httputil.Response{data=SnipeExecuteResponse}
//	@Router		/api/v1/snipe/execute [post]
func (h *SnipeHandler) execute(c *gin.Context) {
	var req SnipeExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid inputMint address")
		return
	}
	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid outputMint address")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return
	}

	res := h.snipeSvc.ExecuteSnipe(c.Request.Context(), &snipe.SnipeRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		MaxPrice:    req.MaxPrice,
		SlippageBps: req.SlippageBps,
		TipLamports: req.TipLamports,
		Competitive: req.Competitive,
	})

	if !res.Success {
		httputil.TaggedError(c, statusFor(string(res.Err.Kind)), string(res.Err.Kind), res.Err.Message)
		return
	}

	out := &SnipeExecuteResponse{
		Success:         true,
		Signatures:      make([]string, len(res.Signatures)),
		TipsPaid:        res.TipsPaid,
		ExecutionTimeMs: res.ExecutionTimeMs,
	}
	for i, sig := range res.Signatures {
		out.Signatures[i] = sig.String()
	}
	if res.Quote != nil {
		out.AmountIn = res.Quote.InAmount.String()
		out.AmountOut = res.Quote.OutAmount.String()
		out.ImpliedPrice = res.Quote.ImpliedPrice()
	}
	httputil.Success(c, out)
}
