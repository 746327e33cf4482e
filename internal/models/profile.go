package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EarlyPaymentProfile describes a recurring payment that is sometimes posted before the
// end of the month it belongs to.
type EarlyPaymentProfile struct {
	Name            string          `json:"name"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"`
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`
	NameKeywords    []string        `json:"name_keywords"`
	LeadDays        int             `json:"lead_days"`
	ShiftDays       int             `json:"shift_days"`
}

// Validate checks the profile invariants and lower-cases its keywords.
func (p *EarlyPaymentProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if p.AmountTolerance.IsNegative() {
		return fmt.Errorf("profile %q: amount tolerance must be non-negative, got %s", p.Name, p.AmountTolerance)
	}
	if p.LeadDays <= 0 {
		return fmt.Errorf("profile %q: lead days must be positive, got %d", p.Name, p.LeadDays)
	}
	keywords := make([]string, 0, len(p.NameKeywords))
	for _, k := range p.NameKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return fmt.Errorf("profile %q: at least one name keyword is required", p.Name)
	}
	p.NameKeywords = keywords
	return nil
}
