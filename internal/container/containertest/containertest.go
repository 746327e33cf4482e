// Package containertest builds fully wired containers over in-memory fakes for
// command and integration tests.
package containertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fjacquet/finagent/internal/config"
	"fjacquet/finagent/internal/container"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/store"
)

// Now is the fixed clock every test container uses.
var Now = time.Date(2024, time.February, 5, 12, 0, 0, 0, time.UTC)

// StaticSource serves the same accounts and transactions for every token.
type StaticSource struct {
	mu           sync.Mutex
	Accounts     []models.Account
	Transactions []models.Transaction
	Err          error
	Calls        int
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchAccounts(_ context.Context, _ string) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]models.Account(nil), s.Accounts...), nil
}

func (s *StaticSource) FetchTransactions(_ context.Context, _ string, start, end time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Transaction
	for _, tx := range s.Transactions {
		posted := tx.PostedDate.Time()
		if posted.Before(start) || posted.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// Fixture is a container plus the fakes behind it.
type Fixture struct {
	Container *container.Container
	Persister *store.MockPersister
	Source    *StaticSource
	Logger    *logging.MockLogger
}

// New wires a container over a MockPersister and source. The container is closed
// when the test ends.
func New(t *testing.T, source *StaticSource) *Fixture {
	t.Helper()
	if source == nil {
		source = &StaticSource{}
	}
	cfg := &config.Config{}
	cfg.Provider.Plaid.Environment = "sandbox"
	cfg.Provider.WindowDays = 30
	cfg.Provider.TimeoutSeconds = 5
	cfg.Insights.DashboardLimit = 5
	cfg.Insights.RecentTransactions = 20

	logger := logging.NewMockLogger()
	persister := store.NewMockPersister()
	c, err := container.NewContainer(context.Background(), cfg,
		container.WithLogger(logger),
		container.WithPersister(persister),
		container.WithDataSource(source),
		container.WithClock(func() time.Time { return Now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &Fixture{Container: c, Persister: persister, Source: source, Logger: logger}
}
