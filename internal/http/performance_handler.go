package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/snipe-engine/internal/http/httputil"
	"github.com/hxuan190/snipe-engine/internal/snipe"
)

type PerformanceHandler struct {
	snipeSvc *snipe.Service
}

func NewPerformanceHandler(snipeSvc *snipe.Service) *PerformanceHandler {
	return &PerformanceHandler{snipeSvc: snipeSvc}
}

func (h *PerformanceHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getMetrics)
	pub.GET("/strategy/:id", h.getStrategy)
}

func (h *PerformanceHandler) Root() string {
	return "/performance"
}

// getMetrics returns the full observable snapshot: per-strategy aggregates,
// quote-layer stats and the bundle engine aggregate.
//
//	@Summary	Get performance metrics
//	@Tags		performance
//	@Produce	json
//	@Success	200	{object}	httputil.Response
//	@Router		/api/v1/performance [get]
func (h *PerformanceHandler) getMetrics(c *gin.Context) {
	httputil.Success(c, h.snipeSvc.PerformanceMetrics())
}

func (h *PerformanceHandler) getStrategy(c *gin.Context) {
	id := c.Param("id")
	m := h.snipeSvc.PerformanceMetrics()
	sp, ok := m.Strategies[id]
	if !ok {
		httputil.NotFound(c, "unknown strategy id")
		return
	}
	httputil.Success(c, sp)
}
