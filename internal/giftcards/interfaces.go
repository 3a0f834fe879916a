package giftcards

import (
	"context"

	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
)

// RepositoryInterface defines the contract for the gift card mirror
type RepositoryInterface interface {
	GetCardByID(ctx context.Context, id string) (*GiftCard, error)
	GetCardByCode(ctx context.Context, code string) (*GiftCard, error)
	ListCards(ctx context.Context, filter *ListFilter, limit, offset int) ([]*GiftCard, int64, error)
	CreateCard(ctx context.Context, card *GiftCard) error
	UpdateCardState(ctx context.Context, card *GiftCard) error
}

// LedgerInterface defines the remote ledger operations the engine needs
type LedgerInterface interface {
	CreateGiftCard(ctx context.Context, cred ledger.Credential, in ledger.CreateInput) (*ledger.CreatedGiftCard, error)
	GetGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error)
	CreditGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error)
	DebitGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error)
	DeactivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error)
	ActivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error)
	ListTransactions(ctx context.Context, cred ledger.Credential, id string, first int) ([]ledger.Transaction, error)
}
