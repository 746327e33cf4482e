// Package service is the application core: it drives ingestion from a DataSource into the
// store and produces reclassified views and insight records from the stored data.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fjacquet/finagent/internal/aggregator"
	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/dateutils"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/provider"
	"fjacquet/finagent/internal/reclassifier"
	"fjacquet/finagent/internal/store"
)

// Defaults for Options fields left at zero.
const (
	DefaultWindowDays         = 30
	DefaultTimeout            = 30 * time.Second
	DefaultDashboardInsights  = 5
	DefaultRecentTransactions = 20
)

// ErrEmptyToken is returned when an access token is blank.
var ErrEmptyToken = errors.New("access token cannot be empty")

// Options tunes the service.
type Options struct {
	WindowDays         int
	Timeout            time.Duration
	DashboardInsights  int
	RecentTransactions int
	Now                func() time.Time
}

// Dashboard is the overview returned by the dashboard endpoint.
type Dashboard struct {
	Accounts           []models.Account       `json:"accounts"`
	RecentTransactions []models.Transaction   `json:"recent_transactions"`
	RecentInsights     []models.InsightRecord `json:"recent_insights"`
}

// Service coordinates the store, the data source and the insight pipeline.
type Service struct {
	store        *store.Store
	source       provider.DataSource
	reclassifier *reclassifier.Reclassifier
	aggregator   *aggregator.Aggregator
	logger       logging.Logger
	opts         Options

	// fetchMu serializes ingestion so two fetches never interleave their commits.
	fetchMu sync.Mutex
}

// New creates a Service.
func New(st *store.Store, source provider.DataSource, r *reclassifier.Reclassifier, agg *aggregator.Aggregator, logger logging.Logger, opts Options) *Service {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DashboardInsights <= 0 {
		opts.DashboardInsights = DefaultDashboardInsights
	}
	if opts.RecentTransactions <= 0 {
		opts.RecentTransactions = DefaultRecentTransactions
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		store:        st,
		source:       source,
		reclassifier: r,
		aggregator:   agg,
		logger:       logger.WithField(logging.FieldComponent, "service"),
		opts:         opts,
	}
}

// SourceName returns the name of the configured data source.
func (s *Service) SourceName() string {
	return s.source.Name()
}

// AddAccessToken fetches the accounts for an already-issued token and registers both.
// Nothing is stored when the provider call fails.
func (s *Service) AddAccessToken(ctx context.Context, token string) ([]models.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	accounts, err := s.source.FetchAccounts(ctx, token)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to fetch accounts for new token",
			logging.F(logging.FieldToken, logging.MaskToken(token)))
		return nil, err
	}

	added, err := s.store.LinkToken(ctx, token, accounts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Linked access token",
		logging.F(logging.FieldToken, logging.MaskToken(token)),
		logging.F(logging.FieldCount, len(accounts)),
		logging.F("new", added))
	return redact(accounts), nil
}

// RefreshAccounts re-fetches the accounts of every registered token and replaces them in
// one commit.
func (s *Service) RefreshAccounts(ctx context.Context) ([]models.Account, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	tokens := s.store.AccessTokens()
	if len(tokens) == 0 {
		return nil, apperrors.ErrNoAccessTokens
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	byToken := make(map[string][]models.Account, len(tokens))
	for _, token := range tokens {
		accounts, err := s.source.FetchAccounts(ctx, token)
		if err != nil {
			return nil, err
		}
		byToken[token] = accounts
	}
	if err := s.store.ReplaceAccounts(ctx, byToken); err != nil {
		return nil, err
	}
	return s.Accounts(), nil
}

// FetchTransactions pulls accounts and the last days of transactions for every token and
// replaces the stored sets. days <= 0 uses the configured window. The whole fetch shares
// one timeout; any failure leaves the stored state untouched. It returns the number of
// transactions stored.
func (s *Service) FetchTransactions(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = s.opts.WindowDays
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	tokens := s.store.AccessTokens()
	if len(tokens) == 0 {
		return 0, apperrors.ErrNoAccessTokens
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start, end := dateutils.DayWindow(s.opts.Now(), days)
	began := time.Now()

	byToken := make(map[string][]models.Account, len(tokens))
	var all []models.Transaction
	for _, token := range tokens {
		accounts, err := s.source.FetchAccounts(ctx, token)
		if err != nil {
			return 0, s.fetchFailed(err, token)
		}
		txs, err := s.source.FetchTransactions(ctx, token, start, end)
		if err != nil {
			return 0, s.fetchFailed(err, token)
		}
		byToken[token] = accounts
		all = append(all, txs...)
	}
	all = provider.Dedupe(all)

	if err := s.store.ReplaceAll(ctx, byToken, all); err != nil {
		return 0, err
	}
	s.logger.Info("Fetched transactions",
		logging.F(logging.FieldSource, s.source.Name()),
		logging.F(logging.FieldCount, len(all)),
		logging.F("tokens", len(tokens)),
		logging.F("start_date", dateutils.ToISODate(start)),
		logging.F("end_date", dateutils.ToISODate(end)),
		logging.F(logging.FieldDuration, time.Since(began).Milliseconds()))
	return len(all), nil
}

func (s *Service) fetchFailed(err error, token string) error {
	s.logger.WithError(err).Error("Fetch failed, stored data left unchanged",
		logging.F(logging.FieldToken, logging.MaskToken(token)))
	return err
}

// Accounts returns the linked accounts without their owning tokens.
func (s *Service) Accounts() []models.Account {
	return redact(s.store.Accounts())
}

// GetAllAdjustedTransactions reclassifies the stored transactions.
func (s *Service) GetAllAdjustedTransactions() ([]models.AdjustedTransaction, error) {
	return s.reclassifier.Reclassify(s.store.Transactions())
}

// GetLatestInsights returns up to limit of the most recent insight records, oldest first.
// limit <= 0 returns the whole history.
func (s *Service) GetLatestInsights(limit int) []models.InsightRecord {
	return lastN(s.store.Insights(), limit)
}

// GenerateAndStoreInsight aggregates the adjusted view and appends the record to the
// history. It returns apperrors.ErrNoTransactions when nothing has been fetched.
func (s *Service) GenerateAndStoreInsight(ctx context.Context) (models.InsightRecord, error) {
	// Transactions and balances must come from the same committed state.
	snapshot := s.store.Snapshot()
	adjusted, err := s.reclassifier.Reclassify(snapshot.Transactions)
	if err != nil {
		return models.InsightRecord{}, err
	}
	record, err := s.aggregator.Aggregate(adjusted, snapshot.Accounts)
	if err != nil {
		return models.InsightRecord{}, err
	}
	if err := s.store.AppendInsight(ctx, record); err != nil {
		return models.InsightRecord{}, fmt.Errorf("failed to store insight: %w", err)
	}
	return record, nil
}

// Dashboard returns accounts, the most recent transactions and insights.
func (s *Service) Dashboard() Dashboard {
	return Dashboard{
		Accounts:           s.Accounts(),
		RecentTransactions: lastN(s.store.Transactions(), s.opts.RecentTransactions),
		RecentInsights:     lastN(s.store.Insights(), s.opts.DashboardInsights),
	}
}

// ClearAll removes every token, account, transaction and insight.
func (s *Service) ClearAll(ctx context.Context) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Cleared all data")
	return nil
}

func redact(accounts []models.Account) []models.Account {
	out := make([]models.Account, len(accounts))
	for i, acc := range accounts {
		acc.AccessToken = ""
		out[i] = acc
	}
	return out
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}
