package giftcards

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tirthgodhni98/giftcard-api/pkg/common"
	"github.com/tirthgodhni98/giftcard-api/pkg/middleware"
	"github.com/tirthgodhni98/giftcard-api/pkg/pagination"
)

// ShopDomainHeader selects the issuing shop when the body does not
const ShopDomainHeader = "X-Shop-Domain"

// Handler handles HTTP requests for gift cards
type Handler struct {
	service *Service
}

// NewHandler creates a new gift cards handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateCard issues a new gift card
// POST /api/v1/giftcards
func (h *Handler) CreateCard(c *gin.Context) {
	var req CreateGiftCardRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if identity, ok := middleware.GetIdentity(c); ok {
		if strings.TrimSpace(req.Email) == "" {
			req.Email = identity.Email
		}
		if strings.TrimSpace(req.Name) == "" {
			req.Name = identity.Name
		}
	}
	if req.ShopDomain == "" {
		req.ShopDomain = c.GetHeader(ShopDomainHeader)
	}

	card, err := h.service.CreateCard(c.Request.Context(), &req)
	if err != nil {
		respondCardError(c, err, "failed to create gift card")
		return
	}

	common.CreatedResponse(c, card)
}

// ListCards lists and searches mirrored cards
// GET /api/v1/giftcards
func (h *Handler) ListCards(c *gin.Context) {
	var filter ListFilter
	if !middleware.ValidateAndBindQuery(c, &filter) {
		return
	}
	params := pagination.ParseParams(c)

	cards, total, err := h.service.ListCards(c.Request.Context(), &filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list gift cards")
		return
	}

	common.SuccessResponseWithMeta(c, cards, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetCard returns the mirrored card
// GET /api/v1/giftcards/:id
func (h *Handler) GetCard(c *gin.Context) {
	card, err := h.service.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get gift card")
		return
	}

	common.SuccessResponse(c, card)
}

// LookupByCode refreshes a card found by code
// GET /api/v1/giftcards/code/:code
func (h *Handler) LookupByCode(c *gin.Context) {
	card, err := h.service.LookupByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "failed to look up gift card")
		return
	}

	common.SuccessResponse(c, card)
}

// SyncCard refreshes a card from the ledger
// POST /api/v1/giftcards/:id/sync
func (h *Handler) SyncCard(c *gin.Context) {
	card, err := h.service.LookupByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to sync gift card")
		return
	}

	common.SuccessResponse(c, card)
}

// ReloadCard adds balance to a card
// POST /api/v1/giftcards/:id/reload
func (h *Handler) ReloadCard(c *gin.Context) {
	var req AmountRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	card, err := h.service.ReloadCard(c.Request.Context(), c.Param("id"), &req)
	respondCard(c, card, err, "failed to reload gift card")
}

// RedeemCard spends balance from a card
// POST /api/v1/giftcards/:id/redeem
func (h *Handler) RedeemCard(c *gin.Context) {
	var req AmountRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	card, err := h.service.RedeemCard(c.Request.Context(), c.Param("id"), &req)
	respondCard(c, card, err, "failed to redeem gift card")
}

// DisableCard deactivates a card
// POST /api/v1/giftcards/:id/disable
func (h *Handler) DisableCard(c *gin.Context) {
	card, err := h.service.DisableCard(c.Request.Context(), c.Param("id"))
	respondCard(c, card, err, "failed to disable gift card")
}

// EnableCard re-activates a card
// POST /api/v1/giftcards/:id/enable
func (h *Handler) EnableCard(c *gin.Context) {
	card, err := h.service.EnableCard(c.Request.Context(), c.Param("id"))
	respondCard(c, card, err, "failed to enable gift card")
}

// UpdateStatus sets the card status
// PATCH /api/v1/giftcards/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	card, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	respondCard(c, card, err, "failed to update gift card status")
}

// ListTransactions returns recent ledger transactions for a card
// GET /api/v1/giftcards/:id/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := pagination.ParseLimit(c, 0, pagination.MaxLimit)

	txs, err := h.service.ListTransactions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err, "failed to list gift card transactions")
		return
	}

	common.SuccessResponse(c, txs)
}

// RegisterRoutes registers gift card routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	giftcards := rg.Group("/giftcards")
	{
		giftcards.POST("", h.CreateCard)
		giftcards.GET("", h.ListCards)
		giftcards.GET("/code/:code", h.LookupByCode)
		giftcards.GET("/:id", h.GetCard)
		giftcards.POST("/:id/sync", h.SyncCard)
		giftcards.POST("/:id/reload", h.ReloadCard)
		giftcards.POST("/:id/redeem", h.RedeemCard)
		giftcards.POST("/:id/disable", h.DisableCard)
		giftcards.POST("/:id/enable", h.EnableCard)
		giftcards.PATCH("/:id/status", h.UpdateStatus)
		giftcards.GET("/:id/transactions", h.ListTransactions)
	}
}

func respondCard(c *gin.Context, card *GiftCard, err error, fallback string) {
	if err != nil {
		respondCardError(c, err, fallback)
		return
	}
	middleware.SetShop(c, card.ShopDomain)
	common.SuccessResponse(c, card)
}

// respondCardError reports a partial success as 202 with the remote state
func respondCardError(c *gin.Context, err error, fallback string) {
	var stale *InconsistencyError
	if errors.As(err, &stale) {
		middleware.SetShop(c, stale.Card.ShopDomain)
		common.PartialSuccessResponse(c, stale.Card, MirrorStaleReason,
			"gift card updated in the ledger but the local copy is stale")
		return
	}
	respondError(c, err, fallback)
}

func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
