package plaid

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/provider"
)

// APIError is the error body Plaid returns with non-200 responses.
type APIError struct {
	StatusCode   int    `json:"-"`
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("plaid returned status %d: %s", e.StatusCode, e.ErrorMessage)
	}
	return fmt.Sprintf("plaid returned status %d: %s/%s: %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

type credentials struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type accountsRequest struct {
	credentials
}

type accountsResponse struct {
	Accounts []plaidAccount `json:"accounts"`
}

type plaidAccount struct {
	AccountID string  `json:"account_id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Subtype   *string `json:"subtype"`
	Balances  struct {
		Current *json.Number `json:"current"`
	} `json:"balances"`
}

func (a plaidAccount) toModel() models.Account {
	var balance *decimal.Decimal
	if a.Balances.Current != nil {
		if d, err := decimal.NewFromString(a.Balances.Current.String()); err == nil {
			balance = &d
		}
	}
	return models.NewAccount(a.AccountID, a.Name, a.Type, a.Subtype, balance)
}

type transactionsOptions struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
}

type transactionsRequest struct {
	credentials
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Options   transactionsOptions `json:"options"`
}

type transactionsResponse struct {
	Transactions      []plaidTransaction `json:"transactions"`
	TotalTransactions int                `json:"total_transactions"`
}

type plaidTransaction struct {
	TransactionID string      `json:"transaction_id"`
	AccountID     string      `json:"account_id"`
	Amount        json.Number `json:"amount"`
	Date          string      `json:"date"`
	Name          string      `json:"name"`
	Category      []string    `json:"category"`
	MerchantName  *string     `json:"merchant_name"`
}

func (t plaidTransaction) toRaw() provider.RawTransaction {
	return provider.RawTransaction{
		ID:           t.TransactionID,
		AccountID:    t.AccountID,
		AmountText:   t.Amount.String(),
		Date:         t.Date,
		Name:         t.Name,
		Category:     t.Category,
		MerchantName: t.MerchantName,
	}
}
