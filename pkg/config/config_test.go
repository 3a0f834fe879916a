package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOPIFY_DOMAIN", "test-shop.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")

	cfg, err := Load("giftcards")
	require.NoError(t, err)

	assert.Equal(t, "giftcards", cfg.Server.ServiceName)
	assert.Equal(t, "2025-04", cfg.Shopify.APIVersion)
	assert.Equal(t, "25.00", cfg.GiftCard.DefaultAmount)
	assert.Equal(t, "USD", cfg.GiftCard.Currency)
	assert.Equal(t, ShopsModeStatic, cfg.Shops.Mode)
	assert.Equal(t, 25, cfg.GiftCard.TransactionsPage)
	assert.Equal(t, 100, cfg.GiftCard.MaxTransactions)
	assert.True(t, cfg.Breaker.Enabled)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("SHOPIFY_DOMAIN", "test-shop.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")
	t.Setenv("DEFAULT_GIFT_CARD_AMOUNT", "50.00")
	t.Setenv("SHOPS_MODE", "STORE")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LEDGER_RATE_PER_SECOND", "0.5")

	cfg, err := Load("giftcards")
	require.NoError(t, err)

	assert.Equal(t, "50.00", cfg.GiftCard.DefaultAmount)
	assert.Equal(t, ShopsModeStore, cfg.Shops.Mode)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 0.5, cfg.Shopify.RatePerSecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "static mode with default shop",
			cfg: Config{
				Shops:   ShopsConfig{Mode: ShopsModeStatic},
				Shopify: ShopifyConfig{Domain: "a.myshopify.com", AccessToken: "t"},
			},
		},
		{
			name: "static mode with shops file only",
			cfg: Config{
				Shops: ShopsConfig{Mode: ShopsModeStatic, File: "shops.yaml"},
			},
		},
		{
			name:    "static mode without credentials",
			cfg:     Config{Shops: ShopsConfig{Mode: ShopsModeStatic}},
			wantErr: "missing required Shopify configuration",
		},
		{
			name: "store mode needs no default shop",
			cfg:  Config{Shops: ShopsConfig{Mode: ShopsModeStore}},
		},
		{
			name:    "unknown mode",
			cfg:     Config{Shops: ShopsConfig{Mode: "mongo"}},
			wantErr: "invalid SHOPS_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_NormalizesTransactionPaging(t *testing.T) {
	cfg := Config{
		Shops:    ShopsConfig{Mode: ShopsModeStore},
		GiftCard: GiftCardConfig{TransactionsPage: 0, MaxTransactions: 10},
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.GiftCard.TransactionsPage)
	assert.Equal(t, 25, cfg.GiftCard.MaxTransactions)
}

func TestDatabaseConfig_MigrationURL(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "postgres",
		Password: "p@ss",
		DBName:   "giftcard_db",
		SSLMode:  "disable",
	}

	assert.Equal(t, "pgx5://postgres:p%40ss@db:5432/giftcard_db?sslmode=disable", cfg.MigrationURL())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
