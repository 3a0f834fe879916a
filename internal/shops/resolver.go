package shops

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resolver finds the credential for a shop domain. An empty domain means
// the configured default shop.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (*ShopCredential, error)
}

// StaticResolver serves credentials fixed at startup
type StaticResolver struct {
	defaultDomain string
	shops         map[string]ShopCredential
}

type shopsFile struct {
	Default string           `yaml:"default"`
	Shops   []ShopCredential `yaml:"shops"`
}

// NewStaticResolver builds a resolver from the default shop plus an
// optional YAML file listing more shops. The file may also name a
// different default.
func NewStaticResolver(defaultShop ShopCredential, file string) (*StaticResolver, error) {
	r := &StaticResolver{
		defaultDomain: NormalizeDomain(defaultShop.Domain),
		shops:         make(map[string]ShopCredential),
	}
	if r.defaultDomain != "" {
		r.add(defaultShop)
	}

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read shops file: %w", err)
		}
		if err := r.load(raw); err != nil {
			return nil, err
		}
	}

	if r.defaultDomain == "" && len(r.shops) == 0 {
		return nil, fmt.Errorf("no shops configured")
	}
	return r, nil
}

func (r *StaticResolver) load(raw []byte) error {
	var parsed shopsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse shops file: %w", err)
	}

	for i, shop := range parsed.Shops {
		if NormalizeDomain(shop.Domain) == "" || shop.AccessToken == "" {
			return fmt.Errorf("shops file entry %d: domain and access_token are required", i)
		}
		r.add(shop)
	}
	if parsed.Default != "" {
		r.defaultDomain = NormalizeDomain(parsed.Default)
	}
	return nil
}

func (r *StaticResolver) add(shop ShopCredential) {
	shop.Domain = NormalizeDomain(shop.Domain)
	r.shops[shop.Domain] = shop
}

// DefaultDomain returns the shop used when a request names none
func (r *StaticResolver) DefaultDomain() string {
	return r.defaultDomain
}

// Resolve implements Resolver
func (r *StaticResolver) Resolve(ctx context.Context, domain string) (*ShopCredential, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		domain = r.defaultDomain
	}

	shop, ok := r.shops[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrShopNotFound, domain)
	}
	return &shop, nil
}
