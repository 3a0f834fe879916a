package giftcards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const giftCardColumns = `ledger_id, code, masked_code, owner_email, owner_name,
	initial_value, balance, currency, status, note, shop_domain, created_at, synced_at`

// Repository handles database operations for the gift card mirror
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new gift cards repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanGiftCard(scan func(dest ...interface{}) error) (*GiftCard, error) {
	card := &GiftCard{}
	err := scan(
		&card.ID, &card.Code, &card.MaskedCode, &card.OwnerEmail, &card.OwnerName,
		&card.InitialValue, &card.Balance, &card.Currency, &card.Status, &card.Note,
		&card.ShopDomain, &card.CreatedAt, &card.SyncedAt,
	)
	return card, err
}

// GetCardByID retrieves a card by its ledger id
func (r *Repository) GetCardByID(ctx context.Context, id string) (*GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE ledger_id = $1`

	card, err := scanGiftCard(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get gift card: %w", err)
	}
	return card, nil
}

// GetCardByCode retrieves a card by its code
func (r *Repository) GetCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	query := `SELECT ` + giftCardColumns + ` FROM gift_cards WHERE code = $1`

	card, err := scanGiftCard(r.db.QueryRow(ctx, query, code).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get gift card by code: %w", err)
	}
	return card, nil
}

// buildFilters constructs the WHERE clause and args for a listing
func buildFilters(filter *ListFilter) (string, []interface{}, int) {
	where := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if email := strings.TrimSpace(filter.Email); email != "" {
			where = append(where, fmt.Sprintf("owner_email ILIKE $%d", argIdx))
			args = append(args, "%"+escapeLike(email)+"%")
			argIdx++
		}
		if name := strings.TrimSpace(filter.Name); name != "" {
			where = append(where, fmt.Sprintf("owner_name ILIKE $%d", argIdx))
			args = append(args, "%"+escapeLike(name)+"%")
			argIdx++
		}
		if code := strings.TrimSpace(filter.Code); code != "" {
			where = append(where, fmt.Sprintf("code = $%d", argIdx))
			args = append(args, code)
			argIdx++
		}
		if status := strings.TrimSpace(filter.Status); status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argIdx))
			args = append(args, status)
			argIdx++
		}
	}

	return strings.Join(where, " AND "), args, argIdx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListCards returns one page of cards, most recent first, with the total
// number of matches
func (r *Repository) ListCards(ctx context.Context, filter *ListFilter, limit, offset int) ([]*GiftCard, int64, error) {
	whereClause, args, argIdx := buildFilters(filter)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM gift_cards WHERE %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count gift cards: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM gift_cards WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		giftCardColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gift cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*GiftCard, 0)
	for rows.Next() {
		card, err := scanGiftCard(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan gift card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list gift cards: %w", err)
	}

	return cards, total, nil
}

// CreateCard inserts the mirror row for a card the ledger just created
func (r *Repository) CreateCard(ctx context.Context, card *GiftCard) error {
	query := `
		INSERT INTO gift_cards (` + giftCardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		card.ID, card.Code, card.MaskedCode, card.OwnerEmail, card.OwnerName,
		card.InitialValue, card.Balance, card.Currency, card.Status, card.Note,
		card.ShopDomain, card.CreatedAt, card.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create gift card: %w", err)
	}
	return nil
}

// UpdateCardState overwrites the remote-owned fields of a card
func (r *Repository) UpdateCardState(ctx context.Context, card *GiftCard) error {
	query := `
		UPDATE gift_cards
		SET balance = $2, status = $3, currency = $4, masked_code = $5, synced_at = $6
		WHERE ledger_id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		card.ID, card.Balance, card.Status, card.Currency, card.MaskedCode, card.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update gift card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}
