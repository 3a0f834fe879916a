package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Credential scopes a call to one shop
type Credential struct {
	Domain      string
	AccessToken string
	APIVersion  string // empty means the client default
}

// Money mirrors the ledger's MoneyV2 shape. Amounts arrive as decimal strings.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// GiftCard is the ledger's view of a card
type GiftCard struct {
	ID             string    `json:"id"`
	MaskedCode     string    `json:"maskedCode"`
	LastCharacters string    `json:"lastCharacters"`
	Enabled        bool      `json:"enabled"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"createdAt"`
	InitialValue   Money     `json:"initialValue"`
	Balance        Money     `json:"balance"`
}

// Status maps the ledger's enabled flag to the mirror status
func (g *GiftCard) Status() string {
	if g.Enabled {
		return StatusActive
	}
	return StatusDisabled
}

// CreatedGiftCard is returned by creation, the only time the full code is visible
type CreatedGiftCard struct {
	GiftCard
	Code string
}

// Transaction is one ledger movement on a card
type Transaction struct {
	ID           string    `json:"id"`
	Amount       Money     `json:"amount"`
	BalanceAfter Money     `json:"balanceAfterTransaction"`
	ProcessedAt  time.Time `json:"processedAt"`
	Note         string    `json:"note"`
}

// Mirror statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

const giftCardGIDPrefix = "gid://shopify/GiftCard/"

// GiftCardID expands a bare numeric id into the ledger's global id. Global
// ids pass through unchanged.
func GiftCardID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "gid://") {
		return raw
	}
	return giftCardGIDPrefix + raw
}
