// Package provider defines the banking-data source contract and the ingestion helpers
// shared by its implementations.
package provider

import (
	"context"
	"time"

	"fjacquet/finagent/internal/models"
)

// DataSource fetches accounts and transactions for one access token.
type DataSource interface {
	// Name identifies the source in errors and logs.
	Name() string

	// FetchAccounts returns every account the token grants access to.
	FetchAccounts(ctx context.Context, token string) ([]models.Account, error)

	// FetchTransactions returns all transactions posted between start and end inclusive.
	FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]models.Transaction, error)
}

// RawTransaction is a provider record before defaulting. Date is kept as text so a
// malformed value can be reported instead of silently dropped.
type RawTransaction struct {
	ID           string
	AccountID    string
	Amount       float64
	AmountText   string
	Date         string
	Name         string
	Category     []string
	MerchantName *string
}
