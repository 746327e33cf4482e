package models

import "time"

// Snapshot is the whole persisted state. It is always saved and loaded as one unit.
type Snapshot struct {
	Version      int             `json:"version"`
	AccessTokens []string        `json:"access_tokens"`
	Accounts     []Account       `json:"accounts"`
	Transactions []Transaction   `json:"transactions"`
	Insights     []InsightRecord `json:"insights"`
	SavedAt      time.Time       `json:"saved_at"`
}

// NewSnapshot returns an empty snapshot at the current version.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:      SnapshotVersion,
		AccessTokens: []string{},
		Accounts:     []Account{},
		Transactions: []Transaction{},
		Insights:     []InsightRecord{},
	}
}

// Clone copies the top-level slices. Elements are shared, which is safe because
// transactions and insight records are never modified in place.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return NewSnapshot()
	}
	return &Snapshot{
		Version:      s.Version,
		AccessTokens: append([]string{}, s.AccessTokens...),
		Accounts:     append([]Account{}, s.Accounts...),
		Transactions: append([]Transaction{}, s.Transactions...),
		Insights:     append([]InsightRecord{}, s.Insights...),
		SavedAt:      s.SavedAt,
	}
}

// Normalize fills nil slices so a loaded snapshot behaves like a fresh one.
func (s *Snapshot) Normalize() {
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	if s.AccessTokens == nil {
		s.AccessTokens = []string{}
	}
	if s.Accounts == nil {
		s.Accounts = []Account{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Insights == nil {
		s.Insights = []InsightRecord{}
	}
}
