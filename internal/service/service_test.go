package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fjacquet/finagent/internal/aggregator"
	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/profiles"
	"fjacquet/finagent/internal/reclassifier"
	"fjacquet/finagent/internal/store"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) FetchAccounts(ctx context.Context, token string) ([]models.Account, error) {
	args := m.Called(ctx, token)
	if accounts, ok := args.Get(0).([]models.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]models.Transaction, error) {
	args := m.Called(ctx, token, start, end)
	if txs, ok := args.Get(0).([]models.Transaction); ok {
		return txs, args.Error(1)
	}
	return nil, args.Error(1)
}

var testNow = time.Date(2024, time.February, 5, 15, 30, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	source    *mockSource
	persister *store.MockPersister
	store     *store.Store
	logger    *logging.MockLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewMockLogger()
	persister := store.NewMockPersister()
	st := store.New(persister, logger)
	require.NoError(t, st.Open(context.Background()))

	source := &mockSource{}
	svc := New(st, source,
		reclassifier.New(profiles.Default(), logger),
		aggregator.New(
			aggregator.WithClock(func() time.Time { return testNow }),
			aggregator.WithIDGenerator(func() string { return "insight-id" }),
		),
		logger,
		Options{Now: func() time.Time { return testNow }, Timeout: time.Second},
	)
	return &fixture{svc: svc, source: source, persister: persister, store: st, logger: logger}
}

func checking(id string) models.Account {
	balance := decimal.RequireFromString("2500.00")
	return models.NewAccount(id, "Checking", "depository", nil, &balance)
}

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{ID: "t1", AccountID: "acc-1", Amount: decimal.RequireFromString("3416.03"), PostedDate: models.MustParseDate("2024-01-30"), Description: "MORTGAGE PAYMENT", CategoryPath: []string{"Payment"}},
		{ID: "t2", AccountID: "acc-1", Amount: decimal.RequireFromString("50"), PostedDate: models.MustParseDate("2024-01-10"), Description: "Lunch", CategoryPath: []string{"Food"}},
		{ID: "t3", AccountID: "acc-1", Amount: decimal.RequireFromString("-5000"), PostedDate: models.MustParseDate("2024-01-15"), Description: "Payroll"},
	}
}

func TestAddAccessToken(t *testing.T) {
	f := newFixture(t)
	f.source.On("FetchAccounts", mock.Anything, "access-sandbox-1234567890").Return([]models.Account{checking("acc-1")}, nil).Once()

	accounts, err := f.svc.AddAccessToken(context.Background(), "  access-sandbox-1234567890 ")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Empty(t, accounts[0].AccessToken)

	assert.Equal(t, []string{"access-sandbox-1234567890"}, f.store.AccessTokens())
	assert.Equal(t, "access-sandbox-1234567890", f.store.Accounts()[0].AccessToken)
	f.source.AssertExpectations(t)
}

func TestAddAccessToken_Failures(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddAccessToken(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyToken)

	providerErr := &apperrors.DataSourceError{Source: "mock", Op: "fetch accounts", Err: errors.New("invalid token")}
	f.source.On("FetchAccounts", mock.Anything, "bad").Return(nil, providerErr).Once()

	_, err = f.svc.AddAccessToken(context.Background(), "bad")
	assert.True(t, apperrors.IsDataSource(err))
	assert.Empty(t, f.store.AccessTokens())
	assert.Equal(t, 0, f.persister.Saves)
}

func TestFetchTransactions_ReplacesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.LinkToken(ctx, "tok", []models.Account{checking("old")})
	require.NoError(t, err)

	start := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	txs := append(sampleTransactions(), sampleTransactions()[0])
	f.source.On("FetchAccounts", mock.Anything, "tok").Return([]models.Account{checking("acc-1")}, nil).Once()
	f.source.On("FetchTransactions", mock.Anything, "tok", start, end).Return(txs, nil).Once()

	count, err := f.svc.FetchTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Len(t, f.store.Transactions(), 3)
	require.Len(t, f.store.Accounts(), 1)
	assert.Equal(t, "acc-1", f.store.Accounts()[0].ID)
	assert.True(t, f.logger.HasEntry("INFO", "Fetched transactions"))
	f.source.AssertExpectations(t)
}

func TestFetchTransactions_CustomWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.LinkToken(context.Background(), "tok", nil)
	require.NoError(t, err)

	start := time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	f.source.On("FetchAccounts", mock.Anything, "tok").Return([]models.Account{}, nil)
	f.source.On("FetchTransactions", mock.Anything, "tok", start, end).Return([]models.Transaction{}, nil)

	count, err := f.svc.FetchTransactions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	f.source.AssertExpectations(t)
}

func TestFetchTransactions_FailureLeavesStateIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.LinkToken(ctx, "tok", []models.Account{checking("acc-1")})
	require.NoError(t, err)
	require.NoError(t, f.store.ReplaceAll(ctx, map[string][]models.Account{"tok": {checking("acc-1")}}, sampleTransactions()))

	f.source.On("FetchAccounts", mock.Anything, "tok").Return([]models.Account{checking("acc-2")}, nil)
	f.source.On("FetchTransactions", mock.Anything, "tok", mock.Anything, mock.Anything).
		Return(nil, &apperrors.DataSourceError{Source: "mock", Op: "fetch transactions", Err: context.DeadlineExceeded})

	_, err = f.svc.FetchTransactions(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Len(t, f.store.Transactions(), 3)
	assert.Equal(t, "acc-1", f.store.Accounts()[0].ID)
	assert.True(t, f.logger.HasEntry("ERROR", "Fetch failed, stored data left unchanged"))
}

func TestFetchTransactions_PersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.LinkToken(ctx, "tok", nil)
	require.NoError(t, err)

	f.source.On("FetchAccounts", mock.Anything, "tok").Return([]models.Account{checking("acc-1")}, nil)
	f.source.On("FetchTransactions", mock.Anything, "tok", mock.Anything, mock.Anything).Return(sampleTransactions(), nil)
	f.persister.SetSaveError(errors.New("disk full"))

	_, err = f.svc.FetchTransactions(ctx, 0)
	require.Error(t, err)
	assert.Empty(t, f.store.Transactions())
	assert.Empty(t, f.store.Accounts())
}

func TestFetchTransactions_NoTokens(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FetchTransactions(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrNoAccessTokens)

	_, err = f.svc.RefreshAccounts(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoAccessTokens)
}

func TestRefreshAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.LinkToken(ctx, "tok-a", []models.Account{checking("a-old")})
	require.NoError(t, err)
	_, err = f.store.LinkToken(ctx, "tok-b", []models.Account{checking("b-old")})
	require.NoError(t, err)

	f.source.On("FetchAccounts", mock.Anything, "tok-a").Return([]models.Account{checking("a-new")}, nil)
	f.source.On("FetchAccounts", mock.Anything, "tok-b").Return([]models.Account{checking("b-new")}, nil)

	accounts, err := f.svc.RefreshAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a-new", accounts[0].ID)
	assert.Equal(t, "b-new", accounts[1].ID)
	assert.Empty(t, accounts[0].AccessToken)
}

func TestGetAllAdjustedTransactions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.ReplaceAll(context.Background(), nil, sampleTransactions()))

	adjusted, err := f.svc.GetAllAdjustedTransactions()
	require.NoError(t, err)
	require.Len(t, adjusted, 3)
	assert.True(t, adjusted[0].WasAdjusted)
	assert.Equal(t, "2024-02-01", adjusted[0].EffectiveDate.String())
	assert.Equal(t, "mortgage", adjusted[0].MatchedProfile)
	assert.False(t, adjusted[1].WasAdjusted)
}

func TestGenerateAndStoreInsight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.ReplaceAll(ctx, map[string][]models.Account{"tok": {checking("acc-1")}}, sampleTransactions()))

	record, err := f.svc.GenerateAndStoreInsight(ctx)
	require.NoError(t, err)
	assert.Equal(t, "insight-id", record.ID)
	assert.Equal(t, 3466.03, record.TotalSpending)
	assert.Equal(t, 5000.0, record.TotalIncome)
	assert.Equal(t, 2500.0, record.TotalBalance)
	assert.Equal(t, 1, record.AdjustedCount)
	assert.Equal(t, map[string]float64{"2024-01": 50, "2024-02": 3416.03}, record.MonthlySpending)
	assert.Equal(t, models.TrendIncreasing, record.MonthlyTrend)

	history := f.svc.GetLatestInsights(0)
	require.Len(t, history, 1)
	assert.Equal(t, record, history[0])
	assert.Equal(t, record, f.persister.Last().Insights[0])
}

func TestGenerateAndStoreInsight_ConsistentDuringReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txs := sampleTransactions()
	small := func() error {
		return f.store.ReplaceAll(ctx, map[string][]models.Account{"tok": {checking("acc-1")}}, txs[1:2])
	}
	large := func() error {
		return f.store.ReplaceAll(ctx, map[string][]models.Account{"tok": {checking("acc-1"), checking("acc-2")}}, txs)
	}
	require.NoError(t, small())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			replace := small
			if i%2 == 0 {
				replace = large
			}
			if err := replace(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		record, err := f.svc.GenerateAndStoreInsight(ctx)
		require.NoError(t, err)
		switch record.TransactionCount {
		case 1:
			assert.Equal(t, 2500.0, record.TotalBalance)
		case 3:
			assert.Equal(t, 5000.0, record.TotalBalance)
		default:
			t.Fatalf("unexpected transaction count %d", record.TransactionCount)
		}
	}
	<-done
}

func TestGenerateAndStoreInsight_NoData(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateAndStoreInsight(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoTransactions)
	assert.Empty(t, f.svc.GetLatestInsights(5))
}

func TestGetLatestInsightsAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var txs []models.Transaction
	for i := 0; i < 25; i++ {
		txs = append(txs, models.Transaction{
			ID:         string(rune('a' + i)),
			Amount:     decimal.NewFromInt(int64(i + 1)),
			PostedDate: models.MustParseDate("2024-01-10"),
		})
	}
	require.NoError(t, f.store.ReplaceAll(ctx, map[string][]models.Account{"tok": {checking("acc-1")}}, txs))
	for _, id := range []string{"i1", "i2", "i3", "i4", "i5", "i6", "i7"} {
		require.NoError(t, f.store.AppendInsight(ctx, models.InsightRecord{ID: id}))
	}

	latest := f.svc.GetLatestInsights(2)
	require.Len(t, latest, 2)
	assert.Equal(t, "i6", latest[0].ID)
	assert.Equal(t, "i7", latest[1].ID)
	assert.Len(t, f.svc.GetLatestInsights(100), 7)

	dash := f.svc.Dashboard()
	require.Len(t, dash.Accounts, 1)
	assert.Empty(t, dash.Accounts[0].AccessToken)
	require.Len(t, dash.RecentTransactions, DefaultRecentTransactions)
	assert.Equal(t, "f", dash.RecentTransactions[0].ID)
	require.Len(t, dash.RecentInsights, DefaultDashboardInsights)
	assert.Equal(t, "i3", dash.RecentInsights[0].ID)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.LinkToken(ctx, "tok", []models.Account{checking("acc-1")})
	require.NoError(t, err)
	require.NoError(t, f.store.ReplaceAll(ctx, nil, sampleTransactions()))
	require.NoError(t, f.store.AppendInsight(ctx, models.InsightRecord{ID: "i1"}))

	require.NoError(t, f.svc.ClearAll(ctx))
	assert.Empty(t, f.store.AccessTokens())
	assert.Empty(t, f.svc.Accounts())
	assert.Empty(t, f.store.Transactions())
	assert.Empty(t, f.svc.GetLatestInsights(0))
	assert.Equal(t, "mock", f.svc.SourceName())
}
