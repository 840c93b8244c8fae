// internal/vault/vault.go

// Package vault abstracts the external secret store that holds the sensitive
// half of saved payment instruments. Only opaque secret ids are persisted in
// the application database; card and bank numbers live here.
package vault

import "context"

type CardSecret struct {
	Number string `json:"number"`
	CVV    string `json:"cvv"`
}

type BankSecret struct {
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
}

// Vault is the secret-store capability the resolver depends on. A nil secret
// with a nil error means nothing usable is stored under the id; the caller
// decides how to classify that.
type Vault interface {
	GetCardSecret(ctx context.Context, secretID string) (*CardSecret, error)
	GetBankSecret(ctx context.Context, secretID string) (*BankSecret, error)
}
