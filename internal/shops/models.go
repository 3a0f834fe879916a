package shops

import (
	"errors"
	"strings"
)

// ErrShopNotFound is returned when no credential is provisioned for a domain
var ErrShopNotFound = errors.New("shop not found")

// ShopCredential is the access token for one shop's ledger
type ShopCredential struct {
	Domain      string `json:"domain" yaml:"domain"`
	AccessToken string `json:"access_token" yaml:"access_token"`
	APIVersion  string `json:"api_version,omitempty" yaml:"api_version"`
}

// NormalizeDomain lowercases and trims a shop domain
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
