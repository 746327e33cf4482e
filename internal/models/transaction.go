// Package models holds the data contracts shared by ingestion, reclassification,
// aggregation and persistence.
package models

import (
	"github.com/shopspring/decimal"
)

// Transaction is a provider transaction after ingestion-time defaulting.
// Amount is positive for money leaving the account and negative for money arriving.
// Transactions are never modified after ingestion.
type Transaction struct {
	ID           string          `json:"transaction_id"`
	AccountID    string          `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	PostedDate   Date            `json:"date"`
	Description  string          `json:"name"`
	CategoryPath []string        `json:"category"`
	MerchantName *string         `json:"merchant_name"`
}

// IsSpending reports whether the transaction is a debit.
func (t Transaction) IsSpending() bool {
	return t.Amount.IsPositive()
}

// IsIncome reports whether the transaction is a credit.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsNegative()
}

// TopCategory returns the outermost category, if any.
func (t Transaction) TopCategory() (string, bool) {
	if len(t.CategoryPath) == 0 || t.CategoryPath[0] == "" {
		return "", false
	}
	return t.CategoryPath[0], true
}

// Merchant returns the merchant name, if present.
func (t Transaction) Merchant() (string, bool) {
	if t.MerchantName == nil || *t.MerchantName == "" {
		return "", false
	}
	return *t.MerchantName, true
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AdjustedTransaction is a Transaction with the date it should be attributed to.
// When WasAdjusted is false, EffectiveDate equals PostedDate and OriginalDate is nil.
type AdjustedTransaction struct {
	Transaction
	EffectiveDate  Date   `json:"effective_date"`
	OriginalDate   *Date  `json:"original_date,omitempty"`
	WasAdjusted    bool   `json:"was_adjusted"`
	MatchedProfile string `json:"matched_profile,omitempty"`
}

// Passthrough wraps tx without adjustment.
func Passthrough(tx Transaction) AdjustedTransaction {
	return AdjustedTransaction{
		Transaction:   tx,
		EffectiveDate: tx.PostedDate,
	}
}

// Shifted wraps tx with its effective date moved to effective by the named profile.
func Shifted(tx Transaction, effective Date, profile string) AdjustedTransaction {
	original := tx.PostedDate
	return AdjustedTransaction{
		Transaction:    tx,
		EffectiveDate:  effective,
		OriginalDate:   &original,
		WasAdjusted:    true,
		MatchedProfile: profile,
	}
}

// Originals returns the unadjusted transactions behind adjusted, in order.
func Originals(adjusted []AdjustedTransaction) []Transaction {
	out := make([]Transaction, len(adjusted))
	for i, a := range adjusted {
		out[i] = a.Transaction
	}
	return out
}
