package provider

import (
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/models"
)

// Normalize converts raw records into Transactions. Missing category or merchant become
// empty. An unparseable date rejects the whole batch with an InvalidDateError.
func Normalize(raw []RawTransaction) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(raw))
	for _, r := range raw {
		tx, err := NormalizeOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// NormalizeOne converts a single raw record.
func NormalizeOne(r RawTransaction) (models.Transaction, error) {
	date, err := models.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return models.Transaction{}, &apperrors.InvalidDateError{TransactionID: r.ID, Value: r.Date, Err: err}
	}

	amount := decimal.NewFromFloat(r.Amount)
	if r.AmountText != "" {
		if parsed, err := decimal.NewFromString(r.AmountText); err == nil {
			amount = parsed
		}
	}

	var category []string
	for _, c := range r.Category {
		if c = strings.TrimSpace(c); c != "" {
			category = append(category, c)
		}
	}
	if category == nil {
		category = []string{}
	}

	var merchant *string
	if r.MerchantName != nil {
		merchant = models.StringPtr(strings.TrimSpace(*r.MerchantName))
	}

	return models.Transaction{
		ID:           r.ID,
		AccountID:    r.AccountID,
		Amount:       amount,
		PostedDate:   date,
		Description:  r.Name,
		CategoryPath: category,
		MerchantName: merchant,
	}, nil
}

// Dedupe drops repeated transaction IDs keeping the first occurrence. Records without an
// ID are always kept.
func Dedupe(txs []models.Transaction) []models.Transaction {
	seen := make(map[string]bool, len(txs))
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ID != "" {
			if seen[tx.ID] {
				continue
			}
			seen[tx.ID] = true
		}
		out = append(out, tx)
	}
	return out
}
