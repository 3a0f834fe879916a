package giftcards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
	"github.com/tirthgodhni98/giftcard-api/internal/shops"
	"github.com/tirthgodhni98/giftcard-api/pkg/common"
	"github.com/tirthgodhni98/giftcard-api/pkg/eventbus"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"go.uber.org/zap"
)

// Operation names reported in errors, logs and events
const (
	OpCreate  = "create"
	OpReload  = "reload"
	OpRedeem  = "redeem"
	OpDisable = "disable"
	OpEnable  = "enable"
	OpLookup  = "lookup"
)

// Config holds the engine defaults
type Config struct {
	DefaultAmount    decimal.Decimal
	Currency         string
	TransactionsPage int
	MaxTransactions  int
	Source           string // event source name
}

// Service is the card lifecycle engine. Every mutation is remote-first: the
// mirror changes only after the ledger confirms.
type Service struct {
	repo   RepositoryInterface
	ledger LedgerInterface
	shops  shops.Resolver
	events eventbus.Publisher
	cfg    Config
	source string
	now    func() time.Time
}

// NewService creates a new gift card service. A nil publisher disables events.
func NewService(repo RepositoryInterface, ledgerClient LedgerInterface, resolver shops.Resolver, events eventbus.Publisher, cfg Config) *Service {
	if events == nil {
		events = eventbus.NoopPublisher{}
	}
	if cfg.TransactionsPage <= 0 {
		cfg.TransactionsPage = 25
	}
	if cfg.MaxTransactions < cfg.TransactionsPage {
		cfg.MaxTransactions = cfg.TransactionsPage
	}
	source := cfg.Source
	if source == "" {
		source = "giftcards"
	}

	return &Service{
		repo:   repo,
		ledger: ledgerClient,
		shops:  resolver,
		events: events,
		cfg:    cfg,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ========================================
// LIFECYCLE OPERATIONS
// ========================================

// CreateCard issues a card on the ledger and mirrors it. Email and name
// must already carry any identity fallback.
func (s *Service) CreateCard(ctx context.Context, req *CreateGiftCardRequest) (*GiftCard, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, common.NewBadRequestError("email and name are required", nil)
	}

	amount := s.cfg.DefaultAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount.IsNegative() {
		return nil, common.NewBadRequestError("amount must not be negative", nil)
	}

	cred, err := s.credential(ctx, req.ShopDomain)
	if err != nil {
		return nil, err
	}

	created, err := s.ledger.CreateGiftCard(ctx, cred, ledger.CreateInput{
		InitialValue: amount,
		Note:         req.Message,
	})
	if err != nil {
		return nil, s.remoteFailure(ctx, OpCreate, "", err)
	}

	card := newMirrorCard(created, email, name, cred.Domain, s.now())
	if err := s.repo.CreateCard(ctx, card); err != nil {
		inconsistency := &InconsistencyError{Op: OpCreate, Card: card, Err: err}
		s.reportInconsistency(ctx, inconsistency)
		return card, inconsistency
	}

	logger.WithContext(ctx).Info("Gift card created",
		zap.String("card_id", card.ID),
		zap.String("shop_domain", card.ShopDomain),
		zap.String("initial_value", card.InitialValue.String()),
	)
	s.publishLifecycle(ctx, SubjectCreated, OpCreate, card, card.InitialValue)

	return card, nil
}

// ReloadCard credits an active card
func (s *Service) ReloadCard(ctx context.Context, id string, req *AmountRequest) (*GiftCard, error) {
	if !req.Amount.IsPositive() {
		return nil, common.NewBadRequestError("amount must be greater than 0", nil)
	}

	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if !card.IsActive() {
		return nil, common.NewBadRequestError("gift card is disabled", nil)
	}

	return s.move(ctx, OpReload, SubjectReloaded, card, req, s.ledger.CreditGiftCard)
}

// RedeemCard debits an active card. The local balance check is advisory;
// the ledger has the final say.
func (s *Service) RedeemCard(ctx context.Context, id string, req *AmountRequest) (*GiftCard, error) {
	if !req.Amount.IsPositive() {
		return nil, common.NewBadRequestError("amount must be greater than 0", nil)
	}

	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if !card.IsActive() {
		return nil, common.NewBadRequestError("gift card is disabled", nil)
	}
	if req.Amount.GreaterThan(card.Balance) {
		return nil, common.NewBadRequestError("insufficient gift card balance", nil).WithDetails(map[string]string{
			"balance":   card.Balance.String(),
			"requested": req.Amount.String(),
		})
	}

	return s.move(ctx, OpRedeem, SubjectRedeemed, card, req, s.ledger.DebitGiftCard)
}

type movement func(ctx context.Context, cred ledger.Credential, id string, in ledger.MovementInput) (*ledger.GiftCard, error)

func (s *Service) move(ctx context.Context, op, subject string, card *GiftCard, req *AmountRequest, call movement) (*GiftCard, error) {
	cred, err := s.credential(ctx, card.ShopDomain)
	if err != nil {
		return nil, err
	}

	currency := card.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	remote, err := call(ctx, cred, card.ID, ledger.MovementInput{
		Amount:   req.Amount,
		Currency: currency,
		Note:     req.Note,
	})
	if err != nil {
		return nil, s.remoteFailure(ctx, op, card.ID, err)
	}

	card, err = s.reconcile(ctx, op, card, remote)
	if err != nil {
		return card, err
	}

	logger.WithContext(ctx).Info("Gift card balance changed",
		zap.String("operation", op),
		zap.String("card_id", card.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("balance", card.Balance.String()),
	)
	s.publishLifecycle(ctx, subject, op, card, req.Amount)

	return card, nil
}

// DisableCard deactivates a card on the ledger
func (s *Service) DisableCard(ctx context.Context, id string) (*GiftCard, error) {
	return s.setStatus(ctx, id, OpDisable, SubjectDisabled, s.ledger.DeactivateGiftCard)
}

// EnableCard re-activates a disabled card on the ledger
func (s *Service) EnableCard(ctx context.Context, id string) (*GiftCard, error) {
	return s.setStatus(ctx, id, OpEnable, SubjectEnabled, s.ledger.ActivateGiftCard)
}

// UpdateStatus moves a card to the requested status
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*GiftCard, error) {
	switch status {
	case StatusActive:
		return s.EnableCard(ctx, id)
	case StatusDisabled:
		return s.DisableCard(ctx, id)
	default:
		return nil, common.NewBadRequestError("status must be active or disabled", nil)
	}
}

type statusChange func(ctx context.Context, cred ledger.Credential, id string) (*ledger.GiftCard, error)

func (s *Service) setStatus(ctx context.Context, id, op, subject string, call statusChange) (*GiftCard, error) {
	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}

	cred, err := s.credential(ctx, card.ShopDomain)
	if err != nil {
		return nil, err
	}

	remote, err := call(ctx, cred, card.ID)
	if err != nil {
		return nil, s.remoteFailure(ctx, op, card.ID, err)
	}

	card, err = s.reconcile(ctx, op, card, remote)
	if err != nil {
		return card, err
	}

	logger.WithContext(ctx).Info("Gift card status changed",
		zap.String("operation", op),
		zap.String("card_id", card.ID),
		zap.String("status", card.Status),
	)
	s.publishLifecycle(ctx, subject, op, card, decimal.Zero)

	return card, nil
}

// ========================================
// LOOKUPS
// ========================================

// LookupByID refreshes a card from the ledger. Lookups heal a stale mirror.
func (s *Service) LookupByID(ctx context.Context, id string) (*GiftCard, error) {
	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, card)
}

// LookupByCode finds a card by its code and refreshes it from the ledger
func (s *Service) LookupByCode(ctx context.Context, code string) (*GiftCard, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, common.NewBadRequestError("code is required", nil)
	}

	card, err := s.repo.GetCardByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, common.NewNotFoundError("gift card not found", err)
		}
		return nil, common.NewInternalError("failed to load gift card", err)
	}
	return s.refresh(ctx, card)
}

func (s *Service) refresh(ctx context.Context, card *GiftCard) (*GiftCard, error) {
	cred, err := s.credential(ctx, card.ShopDomain)
	if err != nil {
		return nil, err
	}

	remote, err := s.ledger.GetGiftCard(ctx, cred, card.ID)
	if err != nil {
		return nil, s.remoteFailure(ctx, OpLookup, card.ID, err)
	}

	applyRemote(card, remote, s.now())
	if err := s.repo.UpdateCardState(ctx, card); err != nil {
		// The caller still gets the ledger's answer; the next lookup retries
		logger.WithContext(ctx).Warn("failed to refresh gift card mirror",
			zap.String("card_id", card.ID),
			zap.Error(err),
		)
	}
	return card, nil
}

// ListTransactions returns the newest ledger movements of a card. They are
// not persisted.
func (s *Service) ListTransactions(ctx context.Context, id string, limit int) (*TransactionsResponse, error) {
	if limit <= 0 {
		limit = s.cfg.TransactionsPage
	}
	if limit > s.cfg.MaxTransactions {
		limit = s.cfg.MaxTransactions
	}

	card, err := s.loadCard(ctx, id)
	if err != nil {
		return nil, err
	}

	cred, err := s.credential(ctx, card.ShopDomain)
	if err != nil {
		return nil, err
	}

	remote, err := s.ledger.ListTransactions(ctx, cred, card.ID, limit)
	if err != nil {
		return nil, s.remoteFailure(ctx, "transactions", card.ID, err)
	}

	txs := make([]*Transaction, 0, len(remote))
	for _, tx := range remote {
		txs = append(txs, &Transaction{
			ID:           tx.ID,
			Amount:       tx.Amount.Amount,
			BalanceAfter: tx.BalanceAfter.Amount,
			Currency:     tx.Amount.CurrencyCode,
			Note:         tx.Note,
			ProcessedAt:  tx.ProcessedAt,
		})
	}

	return &TransactionsResponse{CardID: card.ID, Transactions: txs}, nil
}

// ListCards searches the mirror only
func (s *Service) ListCards(ctx context.Context, filter *ListFilter, limit, offset int) ([]*GiftCard, int64, error) {
	if filter == nil {
		filter = &ListFilter{}
	}

	cards, total, err := s.repo.ListCards(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list gift cards", err)
	}
	return cards, total, nil
}

// GetCard reads a card from the mirror without contacting the ledger
func (s *Service) GetCard(ctx context.Context, id string) (*GiftCard, error) {
	return s.loadCard(ctx, id)
}

// ========================================
// HELPERS
// ========================================

func (s *Service) loadCard(ctx context.Context, id string) (*GiftCard, error) {
	id = ledger.GiftCardID(id)
	if id == "" {
		return nil, common.NewBadRequestError("gift card id is required", nil)
	}

	card, err := s.repo.GetCardByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, common.NewNotFoundError("gift card not found", err)
		}
		return nil, common.NewInternalError("failed to load gift card", err)
	}
	return card, nil
}

// credential resolves the shop before any ledger call. An empty domain means
// the default shop.
func (s *Service) credential(ctx context.Context, domain string) (ledger.Credential, error) {
	shop, err := s.shops.Resolve(ctx, domain)
	if err != nil {
		if errors.Is(err, shops.ErrShopNotFound) {
			return ledger.Credential{}, common.NewNotFoundError("shop not found", err)
		}
		logger.WithContext(ctx).Error("failed to resolve shop", zap.String("shop_domain", domain), zap.Error(err))
		return ledger.Credential{}, common.NewInternalError("failed to resolve shop credentials", err)
	}

	return ledger.Credential{
		Domain:      shop.Domain,
		AccessToken: shop.AccessToken,
		APIVersion:  shop.APIVersion,
	}, nil
}

func (s *Service) remoteFailure(ctx context.Context, op, cardID string, err error) error {
	var userErrs *ledger.UserErrorsError
	if errors.As(err, &userErrs) {
		logger.WithContext(ctx).Info("Gift card ledger rejected operation",
			zap.String("operation", op),
			zap.String("card_id", cardID),
			zap.Any("user_errors", userErrs.Errors),
		)
	} else {
		logger.WithContext(ctx).Error("Gift card ledger call failed",
			zap.String("operation", op),
			zap.String("card_id", cardID),
			zap.Error(err),
		)
	}
	return toAppError(err)
}

func (s *Service) publishLifecycle(ctx context.Context, subject, op string, card *GiftCard, amount decimal.Decimal) {
	s.publish(ctx, subject, &LifecycleEvent{
		CardID:     card.ID,
		Operation:  op,
		ShopDomain: card.ShopDomain,
		Amount:     amount,
		Balance:    card.Balance,
		Status:     card.Status,
	})
}
