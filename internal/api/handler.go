package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmoretti/plpulse/internal/domain/dto"
	"github.com/rmoretti/plpulse/internal/domain/models"
	"github.com/rmoretti/plpulse/internal/storage"
)

// CollectRunner runs one collection pass. Implemented by service.Collector.
type CollectRunner interface {
	Collect(ctx context.Context) ([]models.TickerPL, error)
}

// Handler provides the HTTP handlers of the api mode: triggering a
// collection run and reading back persisted P&L entries.
type Handler struct {
	collector CollectRunner
	repo      storage.PLRepository // nil when no run store is configured
}

// NewHandler constructs a Handler. repo may be nil; the lookup endpoint then
// reports the store as unavailable.
func NewHandler(collector CollectRunner, repo storage.PLRepository) *Handler {
	return &Handler{collector: collector, repo: repo}
}

// Collect handles POST /api/v1/collect.
//
// This is the scheduled-invocation surface: an external scheduler hits it
// once per trading day. The response carries the run's entry count and the
// serialized entries, the same payload the one-shot CLI mode prints.
//
// Collect godoc
// @Summary      Run a collection pass
// @Description  Discovers the active ticker universe, fetches snapshots, derives daily P&L, and publishes it to the cache
// @Tags         collect
// @Produce      json
// @Success      200  {object}  dto.CollectResponse  "Run result"
// @Failure      502  {object}  dto.ErrorResponse    "Upstream or cache failure"
// @Router       /api/v1/collect [post]
func (h *Handler) Collect(c *gin.Context) {
	entries, err := h.collector.Collect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("collection run failed", err))
		return
	}

	c.JSON(http.StatusOK, dto.CollectResponse{
		Count: len(entries),
		Items: entries,
	})
}

// LatestPL handles GET /api/v1/pl/:ticker.
//
// LatestPL godoc
// @Summary      Latest stored P&L for a ticker
// @Tags         pl
// @Produce      json
// @Param        ticker  path      string  true  "Stock ticker"  example(AAPL)
// @Success      200     {object}  models.TickerPL    "Latest entry"
// @Failure      404     {object}  dto.ErrorResponse  "No entry stored"
// @Failure      503     {object}  dto.ErrorResponse  "Run store not configured"
// @Router       /api/v1/pl/{ticker} [get]
func (h *Handler) LatestPL(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("run store not configured", nil))
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("ticker is required", nil))
		return
	}

	entry, err := h.repo.LatestByTicker(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch P&L", err))
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data found", nil))
		return
	}

	c.JSON(http.StatusOK, entry)
}
