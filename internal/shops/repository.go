package shops

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is the part of pgxpool.Pool the store needs
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// StoreResolver reads credentials from the shops table
type StoreResolver struct {
	db            rowQuerier
	defaultDomain string
}

// NewStoreResolver creates a resolver backed by PostgreSQL
func NewStoreResolver(db rowQuerier, defaultDomain string) *StoreResolver {
	return &StoreResolver{db: db, defaultDomain: NormalizeDomain(defaultDomain)}
}

// Resolve implements Resolver
func (r *StoreResolver) Resolve(ctx context.Context, domain string) (*ShopCredential, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		domain = r.defaultDomain
	}
	if domain == "" {
		return nil, fmt.Errorf("%w: no shop domain given and no default configured", ErrShopNotFound)
	}

	query := `
		SELECT domain, access_token, api_version
		FROM shops
		WHERE domain = $1 AND active = TRUE
	`

	var shop ShopCredential
	err := r.db.QueryRow(ctx, query, domain).Scan(&shop.Domain, &shop.AccessToken, &shop.APIVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrShopNotFound, domain)
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return &shop, nil
}
