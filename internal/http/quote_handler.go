package http

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/snipe-engine/internal/domain"
	"github.com/hxuan190/snipe-engine/internal/http/httputil"
	"github.com/hxuan190/snipe-engine/internal/quote"
)

type QuoteHandler struct {
	quoteSvc *quote.Service
}

func NewQuoteHandler(quoteSvc *quote.Service) *QuoteHandler {
	return &QuoteHandler{quoteSvc: quoteSvc}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest represents the parameters for requesting a swap quote
type QuoteRequest struct {
	// Input token mint address (Solana base58 public key)
	// Example: "So11111111111111111111111111111111111111112" (SOL)
	InputMint string `form:"inputMint" binding:"required" example:"So11111111111111111111111111111111111111112"`

	// Output token mint address (Solana base58 public key)
	OutputMint string `form:"outputMint" binding:"required" example:"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"`

	// Amount in smallest token units (lamports for SOL, base units for SPL tokens)
	// For SOL with 9 decimals: "1000000000" = 1 SOL
	Amount string `form:"amount" binding:"required" example:"1000000000"`

	// Slippage tolerance in basis points (1 bps = 0.01%)
	// Default: 50 bps (0.5%)
	SlippageBps uint16 `form:"slippageBps" example:"50"`

	// Restrict routing to single-hop routes
	OnlyDirectRoutes bool `form:"onlyDirectRoutes" example:"false"`

	// Skip the route cache and force a fresh provider round-trip
	BypassCache bool `form:"bypassCache" example:"false"`
}

// RouteInfo describes a single hop in the resolved route
type RouteInfo struct {
	PoolAddress string `json:"poolAddress,omitempty"`
	PoolType    string `json:"poolType" example:"sim-amm"`
	Percent     uint8  `json:"percent" example:"100"`
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
}

// QuoteResponse contains the resolved quote with routing information
type QuoteResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`

	// Actual input amount in smallest token units
	AmountIn string `json:"amountIn" example:"1000000000"`

	// Quoted output amount in smallest token units
	AmountOut string `json:"amountOut" example:"86956521739130"`

	// Implied unit price: amountIn / amountOut
	ImpliedPrice float64 `json:"impliedPrice" example:"0.0000115"`

	// Minimum output after applying the slippage tolerance
	MinAmountOut string `json:"minAmountOut" example:"86521956130434"`

	// Price impact in basis points (1 bps = 0.01%)
	PriceImpactBps uint16 `json:"priceImpactBps" example:"25"`

	// Price impact severity classification
	// - "none": < 10 bps, "low": 10-100, "moderate": 100-300,
	//   "high": 300-500, "extreme": >= 500
	PriceImpactSeverity string `json:"priceImpactSeverity" enums:"none,low,moderate,high,extreme" example:"low"`

	// User-facing warning, empty when impact is negligible
	PriceImpactWarning string `json:"priceImpactWarning,omitempty"`

	Routes   []RouteInfo `json:"routes"`
	HopCount int         `json:"hopCount" example:"1"`

	ContextSlot     uint64 `json:"contextSlot"`
	CacheHit        bool   `json:"cacheHit"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
}

// getQuote resolves a route for a pair and amount.
//
//	@Summary	Get a swap quote
//	@Tags		quote
//	@Produce	json
//	@Param		inputMint	query	string	true	"Input mint (base58)"
//	@Param		outputMint	query	string	true	"Output mint (base58)"
//	@Param		amount		query	string	true	"Amount in base units"
//	@Param		slippageBps	query	int		false	"Slippage in bps (default 50)"
//	@Success	200	{object}	httputil.Response{data=QuoteResponse}
//	@Router		/api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
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

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = 50
	}

	res := h.quoteSvc.GetQuote(c.Request.Context(), &domain.QuoteRequest{
		InputMint:        inputMint,
		OutputMint:       outputMint,
		Amount:           amount,
		SlippageBps:      slippageBps,
		OnlyDirectRoutes: req.OnlyDirectRoutes,
	}, &quote.Options{BypassCache: req.BypassCache})

	if !res.Success {
		httputil.TaggedError(c, statusFor(string(res.Err.Kind)), string(res.Err.Kind), res.Err.Message)
		return
	}

	httputil.Success(c, buildQuoteResponse(res, slippageBps))
}

func buildQuoteResponse(res *domain.QuoteResult, slippageBps uint16) *QuoteResponse {
	q := res.Quote
	severity := quote.ImpactSeverity(q.PriceImpactBps)

	routes := make([]RouteInfo, len(q.Route))
	for i, hop := range q.Route {
		info := RouteInfo{
			PoolType:   hop.PoolType,
			Percent:    hop.Percent,
			InputMint:  hop.InputMint.String(),
			OutputMint: hop.OutputMint.String(),
		}
		if !hop.PoolAddress.IsZero() {
			info.PoolAddress = hop.PoolAddress.String()
		}
		routes[i] = info
	}

	return &QuoteResponse{
		InputMint:           q.InputMint.String(),
		OutputMint:          q.OutputMint.String(),
		AmountIn:            q.InAmount.String(),
		AmountOut:           q.OutAmount.String(),
		ImpliedPrice:        q.ImpliedPrice(),
		MinAmountOut:        quote.MinAmountOut(q.OutAmount, slippageBps).String(),
		PriceImpactBps:      q.PriceImpactBps,
		PriceImpactSeverity: severity,
		PriceImpactWarning:  quote.ImpactWarning(severity),
		Routes:              routes,
		HopCount:            len(q.Route),
		ContextSlot:         q.ContextSlot,
		CacheHit:            res.CacheHit,
		ExecutionTimeMs:     res.ExecutionTimeMs,
	}
}
