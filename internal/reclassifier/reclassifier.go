// Package reclassifier moves recurring payments that post a few days before month-end back
// into the month they are meant for.
package reclassifier

import (
	"strings"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

// Reclassify returns one AdjustedTransaction per input, in input order. Profiles are tried
// in order and the first match wins. A transaction with a zero posted date rejects the
// whole batch.
func Reclassify(transactions []models.Transaction, profiles []models.EarlyPaymentProfile) ([]models.AdjustedTransaction, error) {
	adjusted := make([]models.AdjustedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.PostedDate.IsZero() {
			return nil, &apperrors.InvalidDateError{TransactionID: tx.ID}
		}
		adjusted = append(adjusted, classify(tx, profiles))
	}
	return adjusted, nil
}

func classify(tx models.Transaction, profiles []models.EarlyPaymentProfile) models.AdjustedTransaction {
	for _, p := range profiles {
		if Matches(tx, p) {
			return models.Shifted(tx, tx.PostedDate.AddDays(p.ShiftDays), p.Name)
		}
	}
	return models.Passthrough(tx)
}

// Matches reports whether tx is an early instance of the payment p describes: the amount
// is within tolerance, the description contains a keyword, and the posting falls inside
// the last LeadDays days of the month.
func Matches(tx models.Transaction, p models.EarlyPaymentProfile) bool {
	if tx.Amount.Sub(p.ExpectedAmount).Abs().GreaterThan(p.AmountTolerance) {
		return false
	}
	if !containsKeyword(tx.Description, p.NameKeywords) {
		return false
	}
	return tx.PostedDate.Day() >= tx.PostedDate.DaysInMonth()-p.LeadDays
}

func containsKeyword(description string, keywords []string) bool {
	lower := strings.ToLower(description)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Reclassifier binds a profile set and a logger.
type Reclassifier struct {
	profiles []models.EarlyPaymentProfile
	logger   logging.Logger
}

// New creates a Reclassifier. The profile slice is copied.
func New(profiles []models.EarlyPaymentProfile, logger logging.Logger) *Reclassifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reclassifier{
		profiles: append([]models.EarlyPaymentProfile(nil), profiles...),
		logger:   logger.WithField(logging.FieldComponent, "reclassifier"),
	}
}

// Profiles returns a copy of the configured profiles.
func (r *Reclassifier) Profiles() []models.EarlyPaymentProfile {
	return append([]models.EarlyPaymentProfile(nil), r.profiles...)
}

// Reclassify runs Reclassify with the bound profiles and logs each adjustment.
func (r *Reclassifier) Reclassify(transactions []models.Transaction) ([]models.AdjustedTransaction, error) {
	adjusted, err := Reclassify(transactions, r.profiles)
	if err != nil {
		r.logger.WithError(err).Warn("Rejected transaction batch")
		return nil, err
	}

	count := 0
	for _, a := range adjusted {
		if !a.WasAdjusted {
			continue
		}
		count++
		r.logger.Debug("Shifted early payment",
			logging.F(logging.FieldTransactionID, a.ID),
			logging.F(logging.FieldProfile, a.MatchedProfile),
			logging.F("original_date", a.OriginalDate.String()),
			logging.F("effective_date", a.EffectiveDate.String()))
	}
	r.logger.Info("Reclassified transactions",
		logging.F(logging.FieldCount, len(adjusted)),
		logging.F(logging.FieldAdjusted, count))
	return adjusted, nil
}
