// Package store holds the application state behind a single mutex and persists it as one
// snapshot through a pluggable Persister.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

// Persister saves and loads the whole state snapshot. Load returns an empty snapshot when
// nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot *models.Snapshot) error
	Name() string
	Close() error
}

// Store is the injectable state object. Every mutation is applied to a copy, persisted,
// and only then made visible, so a failed save leaves the previous state in place.
type Store struct {
	mu        sync.RWMutex
	state     *models.Snapshot
	persister Persister
	logger    logging.Logger
	now       func() time.Time
}

// New creates a Store with an empty state. Call Open to load persisted data.
func New(persister Persister, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		state:     models.NewSnapshot(),
		persister: persister,
		logger:    logger.WithFields(logging.F(logging.FieldComponent, "store"), logging.F(logging.FieldBackend, persister.Name())),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Open replaces the in-memory state with the persisted snapshot.
func (s *Store) Open(ctx context.Context) error {
	snapshot, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if snapshot == nil {
		snapshot = models.NewSnapshot()
	}
	snapshot.Normalize()

	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()

	s.logger.Info("Loaded state",
		logging.F("accounts", len(snapshot.Accounts)),
		logging.F("transactions", len(snapshot.Transactions)),
		logging.F("insights", len(snapshot.Insights)))
	return nil
}

// Close releases the persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// AccessTokens returns the registered tokens in registration order.
func (s *Store) AccessTokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.state.AccessTokens...)
}

// Accounts returns all linked accounts.
func (s *Store) Accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Account{}, s.state.Accounts...)
}

// Transactions returns the stored raw transactions.
func (s *Store) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Transaction{}, s.state.Transactions...)
}

// Insights returns the insight history, oldest first.
func (s *Store) Insights() []models.InsightRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.InsightRecord{}, s.state.Insights...)
}

// LinkToken registers token and stores its accounts in one commit. It reports false when
// the token was already registered; its accounts are replaced either way.
func (s *Store) LinkToken(ctx context.Context, token string, accounts []models.Account) (bool, error) {
	added := true
	err := s.commit(ctx, "link_token", func(next *models.Snapshot) {
		for _, existing := range next.AccessTokens {
			if existing == token {
				added = false
				break
			}
		}
		if added {
			next.AccessTokens = append(next.AccessTokens, token)
		}
		next.Accounts = mergeAccounts(next.Accounts, map[string][]models.Account{token: accounts})
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// ReplaceAccounts swaps the accounts owned by each token in accountsByToken.
func (s *Store) ReplaceAccounts(ctx context.Context, accountsByToken map[string][]models.Account) error {
	return s.commit(ctx, "replace_accounts", func(next *models.Snapshot) {
		next.Accounts = mergeAccounts(next.Accounts, accountsByToken)
	})
}

// ReplaceAll commits a fetch result: the accounts of every token in accountsByToken are
// replaced and the transaction set is replaced wholesale.
func (s *Store) ReplaceAll(ctx context.Context, accountsByToken map[string][]models.Account, transactions []models.Transaction) error {
	return s.commit(ctx, "replace_all", func(next *models.Snapshot) {
		next.Accounts = mergeAccounts(next.Accounts, accountsByToken)
		next.Transactions = append([]models.Transaction{}, transactions...)
	})
}

// AppendInsight adds record to the end of the insight history.
func (s *Store) AppendInsight(ctx context.Context, record models.InsightRecord) error {
	return s.commit(ctx, "append_insight", func(next *models.Snapshot) {
		next.Insights = append(next.Insights, record)
	})
}

// Clear empties tokens, accounts, transactions and insights in one commit.
func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, "clear", func(next *models.Snapshot) {
		next.AccessTokens = []string{}
		next.Accounts = []models.Account{}
		next.Transactions = []models.Transaction{}
		next.Insights = []models.InsightRecord{}
	})
}

func (s *Store) commit(ctx context.Context, op string, mutate func(next *models.Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	mutate(next)
	next.Version = models.SnapshotVersion
	next.SavedAt = s.now()

	start := time.Now()
	if err := s.persister.Save(ctx, next); err != nil {
		s.logger.WithError(err).Error("Failed to persist state, keeping previous state",
			logging.F(logging.FieldOperation, op))
		return fmt.Errorf("failed to persist state: %w", err)
	}
	s.state = next

	s.logger.Debug("Persisted state",
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return nil
}

// mergeAccounts keeps the accounts of other tokens in place and swaps in the new accounts
// for each replaced token. Tokens seen for the first time are appended in sorted order.
func mergeAccounts(current []models.Account, replacements map[string][]models.Account) []models.Account {
	out := make([]models.Account, 0, len(current))
	emitted := make(map[string]bool, len(replacements))
	for _, acc := range current {
		fresh, replaced := replacements[acc.AccessToken]
		if !replaced {
			out = append(out, acc)
			continue
		}
		if !emitted[acc.AccessToken] {
			out = append(out, withToken(fresh, acc.AccessToken)...)
			emitted[acc.AccessToken] = true
		}
	}
	pending := make([]string, 0, len(replacements))
	for token := range replacements {
		if !emitted[token] {
			pending = append(pending, token)
		}
	}
	sort.Strings(pending)
	for _, token := range pending {
		out = append(out, withToken(replacements[token], token)...)
	}
	return out
}

func withToken(accounts []models.Account, token string) []models.Account {
	out := make([]models.Account, len(accounts))
	for i, acc := range accounts {
		acc.AccessToken = token
		out[i] = acc
	}
	return out
}
