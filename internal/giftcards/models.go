package giftcards

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
)

// Card statuses
const (
	StatusActive   = ledger.StatusActive
	StatusDisabled = ledger.StatusDisabled
)

// GiftCard is the local mirror of a card held by the remote ledger
type GiftCard struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	MaskedCode   string          `json:"masked_code"`
	OwnerEmail   string          `json:"owner_email"`
	OwnerName    string          `json:"owner_name"`
	InitialValue decimal.Decimal `json:"initial_value"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	Note         string          `json:"note,omitempty"`
	ShopDomain   string          `json:"shop_domain"`
	CreatedAt    time.Time       `json:"created_at"`
	SyncedAt     time.Time       `json:"synced_at"`
}

// IsActive reports whether the card may take reloads and redemptions
func (g *GiftCard) IsActive() bool {
	return g.Status == StatusActive
}

// Transaction is a ledger movement returned to the caller. Transactions are
// never persisted locally.
type Transaction struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Currency     string          `json:"currency"`
	Note         string          `json:"note,omitempty"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

// ========================================
// REQUEST TYPES
// ========================================

// CreateGiftCardRequest creates a new card. Email and name may be omitted
// when the caller identity is known.
type CreateGiftCardRequest struct {
	Email      string           `json:"email" validate:"omitempty,email"`
	Name       string           `json:"name" validate:"omitempty,max=255"`
	Amount     *decimal.Decimal `json:"amount" validate:"omitempty,nonnegative_decimal"`
	Message    string           `json:"message" validate:"omitempty,max=1000"`
	ShopDomain string           `json:"shop_domain" validate:"omitempty,hostname"`
}

// AmountRequest is the body of reload and redeem
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Note   string          `json:"note" validate:"omitempty,max=1000"`
}

// StatusRequest sets the card status directly
type StatusRequest struct {
	Status string `json:"status" validate:"required,card_status"`
}

// ListFilter narrows a mirror listing. Email and name match partially and
// case-insensitively, code and status match exactly.
type ListFilter struct {
	Email  string `form:"email"`
	Name   string `form:"name"`
	Code   string `form:"code"`
	Status string `form:"status" validate:"omitempty,card_status"`
}

// ========================================
// RESPONSE TYPES
// ========================================

// TransactionsResponse is the remote transaction page for one card
type TransactionsResponse struct {
	CardID       string         `json:"card_id"`
	Transactions []*Transaction `json:"transactions"`
}

// InconsistencyEvent is published when the mirror could not record a
// confirmed remote change
type InconsistencyEvent struct {
	CardID     string          `json:"card_id"`
	Operation  string          `json:"operation"`
	ShopDomain string          `json:"shop_domain"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
	Error      string          `json:"error"`
}

// LifecycleEvent is published after every confirmed and mirrored change
type LifecycleEvent struct {
	CardID     string          `json:"card_id"`
	Operation  string          `json:"operation"`
	ShopDomain string          `json:"shop_domain"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
}
