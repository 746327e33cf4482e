package models

import (
	"github.com/shopspring/decimal"
)

// Account is a linked bank account. AccessToken records which provider token owns it.
type Account struct {
	ID          string          `json:"account_id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype"`
	Balance     decimal.Decimal `json:"balance"`
	AccessToken string          `json:"access_token,omitempty"`
}

// NewAccount applies the ingestion defaults: a missing subtype becomes "unknown" and a
// missing balance becomes zero.
func NewAccount(id, name, accountType string, subtype *string, balance *decimal.Decimal) Account {
	acc := Account{
		ID:      id,
		Name:    name,
		Type:    accountType,
		Subtype: DefaultSubtype,
		Balance: decimal.Zero,
	}
	if subtype != nil && *subtype != "" {
		acc.Subtype = *subtype
	}
	if balance != nil {
		acc.Balance = *balance
	}
	return acc
}
