package giftcards

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
	"github.com/tirthgodhni98/giftcard-api/internal/shops"
	"github.com/tirthgodhni98/giftcard-api/pkg/eventbus"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetCardByID(ctx context.Context, id string) (*GiftCard, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*GiftCard)
	return card, args.Error(1)
}

func (m *mockRepository) GetCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	args := m.Called(ctx, code)
	card, _ := args.Get(0).(*GiftCard)
	return card, args.Error(1)
}

func (m *mockRepository) ListCards(ctx context.Context, filter *ListFilter, limit, offset int) ([]*GiftCard, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	cards, _ := args.Get(0).([]*GiftCard)
	return cards, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) CreateCard(ctx context.Context, card *GiftCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *mockRepository) UpdateCardState(ctx context.Context, card *GiftCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

// mockLedger implements LedgerInterface for testing
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CreateGiftCard(ctx context.Context, cred ledger.Credential, in ledger.CreateInput) (*ledger.CreatedGiftCard, error) {
	args := m.Called(ctx, cred, in)
	card, _ := args.Get(0).(*ledger.CreatedGiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) GetGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	args := m.Called(ctx, cred, id)
	card, _ := args.Get(0).(*ledger.GiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) CreditGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error) {
	args := m.Called(ctx, cred, id, in)
	card, _ := args.Get(0).(*ledger.GiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) DebitGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error) {
	args := m.Called(ctx, cred, id, in)
	card, _ := args.Get(0).(*ledger.GiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) DeactivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	args := m.Called(ctx, cred, id)
	card, _ := args.Get(0).(*ledger.GiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) ActivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	args := m.Called(ctx, cred, id)
	card, _ := args.Get(0).(*ledger.GiftCard)
	return card, args.Error(1)
}

func (m *mockLedger) ListTransactions(ctx context.Context, cred ledger.Credential, id string, first int) ([]ledger.Transaction, error) {
	args := m.Called(ctx, cred, id, first)
	txs, _ := args.Get(0).([]ledger.Transaction)
	return txs, args.Error(1)
}

// mockResolver implements shops.Resolver for testing
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, domain string) (*shops.ShopCredential, error) {
	args := m.Called(ctx, domain)
	shop, _ := args.Get(0).(*shops.ShopCredential)
	return shop, args.Error(1)
}

// mockPublisher implements eventbus.Publisher for testing
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}

// memoryRepository is a stateful mirror used by end-to-end flows
type memoryRepository struct {
	mu    sync.Mutex
	cards map[string]GiftCard
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{cards: make(map[string]GiftCard)}
}

func (r *memoryRepository) GetCardByID(ctx context.Context, id string) (*GiftCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	return &card, nil
}

func (r *memoryRepository) GetCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, card := range r.cards {
		if card.Code == code {
			c := card
			return &c, nil
		}
	}
	return nil, ErrCardNotFound
}

func (r *memoryRepository) ListCards(ctx context.Context, filter *ListFilter, limit, offset int) ([]*GiftCard, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if filter == nil {
		filter = &ListFilter{}
	}
	contains := func(value, part string) bool {
		return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(part)))
	}

	cards := make([]*GiftCard, 0, len(r.cards))
	for _, card := range r.cards {
		if !contains(card.OwnerEmail, filter.Email) || !contains(card.OwnerName, filter.Name) {
			continue
		}
		if (filter.Code != "" && card.Code != filter.Code) || (filter.Status != "" && card.Status != filter.Status) {
			continue
		}
		c := card
		cards = append(cards, &c)
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID > cards[j].ID
	})

	total := int64(len(cards))
	if offset > len(cards) {
		offset = len(cards)
	}
	cards = cards[offset:]
	if limit > 0 && limit < len(cards) {
		cards = cards[:limit]
	}
	return cards, total, nil
}

func (r *memoryRepository) CreateCard(ctx context.Context, card *GiftCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cards[card.ID]; exists {
		return fmt.Errorf("duplicate ledger id %s", card.ID)
	}
	r.cards[card.ID] = *card
	return nil
}

func (r *memoryRepository) UpdateCardState(ctx context.Context, card *GiftCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cards[card.ID]
	if !ok {
		return ErrCardNotFound
	}
	stored.Balance = card.Balance
	stored.Status = card.Status
	stored.Currency = card.Currency
	stored.MaskedCode = card.MaskedCode
	stored.SyncedAt = card.SyncedAt
	r.cards[card.ID] = stored
	return nil
}

// memoryLedger applies credits and debits arithmetically and counts calls
type memoryLedger struct {
	mu    sync.Mutex
	next  int
	cards map[string]*ledger.GiftCard
	calls int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{cards: make(map[string]*ledger.GiftCard)}
}

func (l *memoryLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *memoryLedger) CreateGiftCard(ctx context.Context, cred ledger.Credential, in ledger.CreateInput) (*ledger.CreatedGiftCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.next++
	id := ledger.GiftCardID(fmt.Sprint(l.next))
	card := &ledger.GiftCard{
		ID:           id,
		MaskedCode:   fmt.Sprintf("•••• •••• •••• %04d", l.next),
		Enabled:      true,
		Note:         in.Note,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		InitialValue: ledger.Money{Amount: in.InitialValue, CurrencyCode: "USD"},
		Balance:      ledger.Money{Amount: in.InitialValue, CurrencyCode: "USD"},
	}
	l.cards[id] = card
	copied := *card
	return &ledger.CreatedGiftCard{GiftCard: copied, Code: fmt.Sprintf("CODE%012d", l.next)}, nil
}

func (l *memoryLedger) GetGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	card, ok := l.cards[id]
	if !ok {
		return nil, &ledger.ProtocolError{Op: ledger.OpGet, Message: "gift card not found in ledger"}
	}
	copied := *card
	return &copied, nil
}

func (l *memoryLedger) CreditGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error) {
	return l.apply(ledger.OpCredit, id, in.Amount)
}

func (l *memoryLedger) DebitGiftCard(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error) {
	return l.apply(ledger.OpDebit, id, in.Amount.Neg())
}

func (l *memoryLedger) apply(op, id string, delta decimal.Decimal) (*ledger.GiftCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	card, ok := l.cards[id]
	if !ok {
		return nil, &ledger.ProtocolError{Op: op, Message: "gift card not found in ledger"}
	}
	if !card.Enabled {
		return nil, &ledger.UserErrorsError{Op: op, Errors: []ledger.UserError{{Message: "Gift card is deactivated", Code: "GIFT_CARD_DEACTIVATED"}}}
	}
	balance := card.Balance.Amount.Add(delta)
	if balance.IsNegative() {
		return nil, &ledger.UserErrorsError{Op: op, Errors: []ledger.UserError{{Message: "Insufficient funds", Code: "INSUFFICIENT_FUNDS"}}}
	}
	card.Balance.Amount = balance
	copied := *card
	return &copied, nil
}

func (l *memoryLedger) DeactivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	return l.setEnabled(id, false)
}

func (l *memoryLedger) ActivateGiftCard(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error) {
	return l.setEnabled(id, true)
}

func (l *memoryLedger) setEnabled(id string, enabled bool) (*ledger.GiftCard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	card, ok := l.cards[id]
	if !ok {
		return nil, &ledger.ProtocolError{Op: ledger.OpGet, Message: "gift card not found in ledger"}
	}
	card.Enabled = enabled
	copied := *card
	return &copied, nil
}

func (l *memoryLedger) ListTransactions(ctx context.Context, cred ledger.Credential, id string, first int) ([]ledger.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return []ledger.Transaction{}, nil
}

// staticShop resolves every domain to the same credential
type staticShop struct{}

func (staticShop) Resolve(ctx context.Context, domain string) (*shops.ShopCredential, error) {
	return &shops.ShopCredential{Domain: testShopDomain, AccessToken: "shpat_test"}, nil
}
