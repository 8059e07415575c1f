package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
	"github.com/cartwise/backend/internal/usecase"
)

// Optimizer produces optimization reports for shopping lists
type Optimizer interface {
	Optimize(ctx context.Context, listID string) *domain.OptimizationReport
	Watch(ctx context.Context, listID string) <-chan *domain.OptimizationReport
}

// OfferRanker scores catalog offers against a free-text query
type OfferRanker interface {
	RankOffers(query string, offers []domain.CatalogOffer) []usecase.RankedOffer
}

// MerchantLookup resolves merchant display data
type MerchantLookup interface {
	Lookup(merchantID string) domain.Merchant
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	lists     domain.ShoppingListRepository
	optimizer Optimizer
	searcher  domain.OfferSearcher
	ranker    OfferRanker
	merchants MerchantLookup
	log       zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	lists domain.ShoppingListRepository,
	optimizer Optimizer,
	searcher domain.OfferSearcher,
	ranker OfferRanker,
	merchants MerchantLookup,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		lists:     lists,
		optimizer: optimizer,
		searcher:  searcher,
		ranker:    ranker,
		merchants: merchants,
		log:       log.With().Str("component", "http_handler").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartwise-backend",
		"version": "1.0.0",
	})
}

// CreateList handles POST /api/v1/lists
func (h *Handler) CreateList(c *gin.Context) {
	var req domain.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	list := &domain.ShoppingList{Name: strings.TrimSpace(req.Name)}
	if list.Name == "" {
		h.respondError(c, http.StatusBadRequest, "name must not be blank")
		return
	}
	if err := h.lists.CreateList(c.Request.Context(), list); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, list)
}

// ListItems handles GET /api/v1/lists/:listId/items
func (h *Handler) ListItems(c *gin.Context) {
	listID := c.Param("listId")
	if !h.requireList(c, listID) {
		return
	}

	items, err := h.lists.GetLineItemsForList(c.Request.Context(), listID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listId": listID,
		"items":  items,
	})
}

// AddItem handles POST /api/v1/lists/:listId/items
func (h *Handler) AddItem(c *gin.Context) {
	var req domain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item := &domain.LineItem{
		ListID:     c.Param("listId"),
		Name:       strings.TrimSpace(req.Name),
		Quantity:   req.Quantity,
		Unit:       strings.TrimSpace(req.Unit),
		TotalPrice: req.TotalPrice,
		ImageURL:   req.ImageURL,
	}
	if item.Name == "" {
		h.respondError(c, http.StatusBadRequest, "name must not be blank")
		return
	}
	if err := h.lists.AddItem(c.Request.Context(), item); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// DeleteItem handles DELETE /api/v1/lists/:listId/items/:itemId
func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.lists.DeleteItem(c.Request.Context(), c.Param("listId"), c.Param("itemId")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetOptimization handles GET /api/v1/lists/:listId/optimization.
// An existing list always gets a report; failures inside the run yield the empty report.
func (h *Handler) GetOptimization(c *gin.Context) {
	listID := c.Param("listId")
	if !h.requireList(c, listID) {
		return
	}

	c.JSON(http.StatusOK, h.optimizer.Optimize(c.Request.Context(), listID))
}

// StreamOptimization handles GET /api/v1/lists/:listId/optimization/stream.
// It sends a "report" event now and after every change to the list until the client disconnects.
func (h *Handler) StreamOptimization(c *gin.Context) {
	listID := c.Param("listId")
	if !h.requireList(c, listID) {
		return
	}

	// streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	reports := h.optimizer.Watch(c.Request.Context(), listID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		report, ok := <-reports
		if !ok {
			return false
		}
		c.SSEvent("report", report)
		return true
	})

	h.log.Debug().Str("list_id", listID).Msg("Optimization stream closed")
}

// SearchOffers handles GET /api/v1/offers/search?q=
func (h *Handler) SearchOffers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		h.respondError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}

	offers, err := h.searcher.SearchOffers(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":  query,
		"offers": h.ranker.RankOffers(query, offers),
	})
}

// GetMerchant handles GET /api/v1/merchants/:merchantId
func (h *Handler) GetMerchant(c *gin.Context) {
	merchantID := strings.TrimSpace(c.Param("merchantId"))
	if merchantID == "" {
		h.respondError(c, http.StatusBadRequest, "merchant id is required")
		return
	}
	c.JSON(http.StatusOK, h.merchants.Lookup(merchantID))
}

// requireList writes a 404 (or 500) and returns false when the list cannot be loaded
func (h *Handler) requireList(c *gin.Context, listID string) bool {
	if _, err := h.lists.GetList(c.Request.Context(), listID); err != nil {
		h.handleError(c, err)
		return false
	}
	return true
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		h.respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrListNotFound), errors.Is(err, domain.ErrItemNotFound):
		h.respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCatalogFailure):
		h.log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Catalog unavailable")
		h.respondError(c, http.StatusBadGateway, "catalog service unavailable")
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		h.respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
	})
}
