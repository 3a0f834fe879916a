package giftcards

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tirthgodhni98/giftcard-api/internal/ledger"
	"github.com/tirthgodhni98/giftcard-api/pkg/eventbus"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"github.com/tirthgodhni98/giftcard-api/pkg/monitoring"
	"go.uber.org/zap"
)

var mirrorInconsistencies = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "giftcard_mirror_inconsistencies_total",
	Help: "Remote gift card changes the mirror failed to record",
}, []string{"operation"})

// Event subjects, relative to the configured prefix
const (
	SubjectCreated      = "card.created"
	SubjectReloaded     = "card.reloaded"
	SubjectRedeemed     = "card.redeemed"
	SubjectDisabled     = "card.disabled"
	SubjectEnabled      = "card.enabled"
	SubjectInconsistent = "mirror.inconsistent"
)

// newMirrorCard builds the first mirror row from a confirmed remote creation
func newMirrorCard(created *ledger.CreatedGiftCard, email, name, shopDomain string, now time.Time) *GiftCard {
	card := &GiftCard{
		ID:           created.ID,
		Code:         created.Code,
		OwnerEmail:   email,
		OwnerName:    name,
		InitialValue: created.InitialValue.Amount,
		Note:         created.Note,
		ShopDomain:   shopDomain,
		CreatedAt:    created.CreatedAt,
	}
	if card.Code == "" {
		// The ledger only reveals full codes at creation; keep rows unique
		card.Code = created.ID
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	applyRemote(card, &created.GiftCard, now)
	return card
}

// applyRemote folds the ledger's view into the mirror. Remote balance and
// status always win over local values.
func applyRemote(card *GiftCard, remote *ledger.GiftCard, now time.Time) {
	card.Balance = remote.Balance.Amount
	card.Status = remote.Status()
	if remote.Balance.CurrencyCode != "" {
		card.Currency = remote.Balance.CurrencyCode
	}
	if remote.MaskedCode != "" {
		card.MaskedCode = remote.MaskedCode
	}
	card.SyncedAt = now
}

// reconcile applies a confirmed remote result and persists it. A failed
// persist is not retried: the caller gets the remote-derived card together
// with an InconsistencyError and the next lookup heals the row.
func (s *Service) reconcile(ctx context.Context, op string, card *GiftCard, remote *ledger.GiftCard) (*GiftCard, error) {
	applyRemote(card, remote, s.now())

	if err := s.repo.UpdateCardState(ctx, card); err != nil {
		inconsistency := &InconsistencyError{Op: op, Card: card, Err: err}
		s.reportInconsistency(ctx, inconsistency)
		return card, inconsistency
	}
	return card, nil
}

func (s *Service) reportInconsistency(ctx context.Context, ie *InconsistencyError) {
	logger.WithContext(ctx).Error("gift card mirror is stale after confirmed ledger change",
		zap.String("operation", ie.Op),
		zap.String("card_id", ie.Card.ID),
		zap.String("shop_domain", ie.Card.ShopDomain),
		zap.String("remote_balance", ie.Card.Balance.String()),
		zap.String("remote_status", ie.Card.Status),
		zap.Error(ie.Err),
	)

	mirrorInconsistencies.WithLabelValues(ie.Op).Inc()

	monitoring.CaptureError(ctx, ie, map[string]string{
		"operation":   ie.Op,
		"shop_domain": ie.Card.ShopDomain,
	})

	s.publish(ctx, SubjectInconsistent, &InconsistencyEvent{
		CardID:     ie.Card.ID,
		Operation:  ie.Op,
		ShopDomain: ie.Card.ShopDomain,
		Balance:    ie.Card.Balance,
		Status:     ie.Card.Status,
		Error:      ie.Err.Error(),
	})
}

// publish sends an event without affecting the outcome of the operation
func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	event, err := eventbus.NewEvent(eventbus.Subject(eventTypePrefix, subject), s.source, data)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to build gift card event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish gift card event", zap.String("subject", subject), zap.Error(err))
	}
}

const eventTypePrefix = "giftcards"
