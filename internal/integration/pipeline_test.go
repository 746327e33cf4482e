package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/finagent/internal/config"
	"fjacquet/finagent/internal/container"
	"fjacquet/finagent/internal/httpapi"
	"fjacquet/finagent/internal/logging"
)

var now = time.Date(2024, time.February, 5, 12, 0, 0, 0, time.UTC)

// fakePlaid serves one checking account and a January history with an early
// mortgage payment, paginating /transactions/get by offset.
func fakePlaid(t *testing.T) *httptest.Server {
	t.Helper()
	transactions := []map[string]interface{}{
		{"transaction_id": "tx-1", "account_id": "acc-1", "amount": 3416.03, "date": "2024-01-29", "name": "WELLS FARGO MORTGAGE", "category": []string{"Payment", "Mortgage"}, "merchant_name": "Wells Fargo"},
		{"transaction_id": "tx-2", "account_id": "acc-1", "amount": -5200, "date": "2024-01-25", "name": "ACME PAYROLL", "category": []string{"Transfer", "Payroll"}, "merchant_name": nil},
		{"transaction_id": "tx-3", "account_id": "acc-1", "amount": 86.4, "date": "2024-01-12", "name": "Whole Foods", "category": []string{"Food and Drink", "Groceries"}, "merchant_name": "Whole Foods"},
		{"transaction_id": "tx-4", "account_id": "acc-1", "amount": 15.99, "date": "2024-02-01", "name": "Netflix Subscription", "category": []string{"Service", "Subscription"}, "merchant_name": "Netflix"},
		{"transaction_id": "tx-5", "account_id": "acc-1", "amount": 42, "date": "2024-02-02", "name": "Whole Foods", "category": []string{"Food and Drink", "Groceries"}, "merchant_name": "Whole Foods"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/get", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accounts": []map[string]interface{}{
				{"account_id": "acc-1", "name": "Everyday Checking", "type": "depository", "subtype": "checking", "balances": map[string]interface{}{"current": 8450.12}},
			},
		})
	})
	mux.HandleFunc("/transactions/get", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options struct {
				Count  int `json:"count"`
				Offset int `json:"offset"`
			} `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		end := req.Options.Offset + req.Options.Count
		if end > len(transactions) {
			end = len(transactions)
		}
		page := []map[string]interface{}{}
		if req.Options.Offset < len(transactions) {
			page = transactions[req.Options.Offset:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"transactions": page, "total_transactions": len(transactions)})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newConfig(t *testing.T, plaidURL, storagePath string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Provider.Kind = config.ProviderPlaid
	cfg.Provider.Plaid.Environment = "sandbox"
	cfg.Provider.Plaid.ClientID = "client-id"
	cfg.Provider.Plaid.Secret = "secret"
	cfg.Provider.Plaid.BaseURL = plaidURL
	cfg.Provider.PageSize = 2
	cfg.Provider.RequestsPerSecond = 100
	cfg.Provider.TimeoutSeconds = 5
	cfg.Provider.WindowDays = 30
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.Path = storagePath
	cfg.Insights.DashboardLimit = 5
	cfg.Insights.RecentTransactions = 20
	return cfg
}

func openAPI(t *testing.T, cfg *config.Config) (*container.Container, http.Handler) {
	t.Helper()
	logger := logging.NewMockLogger()
	c, err := container.NewContainer(context.Background(), cfg,
		container.WithLogger(logger),
		container.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	handlers := httpapi.NewHandlers(c.GetService(), cfg.Provider.Plaid.Environment, logger)
	return c, httpapi.NewRouter(handlers, cfg.Server.AllowedOrigins, logger)
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec.Code, decoded
}

// TestPipeline_PlaidToInsights drives the whole flow over HTTP: link a token, fetch
// paginated transactions, reclassify the early mortgage payment, aggregate, persist
// to SQLite and read everything back after a restart.
func TestPipeline_PlaidToInsights(t *testing.T) {
	plaid := fakePlaid(t)
	cfg := newConfig(t, plaid.URL, filepath.Join(t.TempDir(), "finagent.db"))
	c, api := openAPI(t, cfg)

	status, body := call(t, api, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sandbox", body["environment"])

	status, body = call(t, api, http.MethodPost, "/generate_insights", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, httpapi.NoDataMessage, body["message"])

	status, body = call(t, api, http.MethodPost, "/access_tokens", `{"access_token":"access-sandbox-42"}`)
	require.Equal(t, http.StatusCreated, status)
	accounts := body["accounts"].([]interface{})
	require.Len(t, accounts, 1)
	assert.NotContains(t, accounts[0], "access_token", "tokens are never exposed")

	status, body = call(t, api, http.MethodPost, "/fetch_transactions", `{"days":30}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), body["count"])

	status, body = call(t, api, http.MethodGet, "/transactions/adjusted", "")
	require.Equal(t, http.StatusOK, status)
	var mortgage map[string]interface{}
	for _, raw := range body["transactions"].([]interface{}) {
		tx := raw.(map[string]interface{})
		if tx["transaction_id"] == "tx-1" {
			mortgage = tx
		}
	}
	require.NotNil(t, mortgage)
	assert.Equal(t, true, mortgage["was_adjusted"])
	assert.Equal(t, "2024-01-31", mortgage["effective_date"])
	assert.Equal(t, "2024-01-29", mortgage["original_date"])

	status, body = call(t, api, http.MethodPost, "/generate_insights", "")
	require.Equal(t, http.StatusOK, status)
	insight := body["insights"].(map[string]interface{})
	assert.Equal(t, float64(5), insight["transaction_count"])
	assert.Equal(t, float64(1), insight["adjusted_count"])
	assert.Equal(t, float64(2), insight["analysis_period_months"])
	assert.Equal(t, "decreasing", insight["monthly_trend"])
	assert.InDelta(t, 3560.42, insight["total_spending"], 0.001)
	assert.InDelta(t, 5200, insight["total_income"], 0.001)
	assert.InDelta(t, 8450.12, insight["total_balance"], 0.001)

	recommendations := insight["recommendations"].([]interface{})
	require.NotEmpty(t, recommendations)
	assert.Contains(t, recommendations[0], "Adjusted 1 early payment(s)")
	joined := ""
	for _, r := range recommendations {
		joined += r.(string) + "\n"
	}
	assert.Contains(t, joined, "Your top spending category is Payment at $3,416")
	assert.Contains(t, joined, "Review your subscriptions")
	assert.Contains(t, joined, "high-yield savings account")

	require.NoError(t, c.Close())

	// Reopen from the same database.
	c, api = openAPI(t, cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	status, body = call(t, api, http.MethodGet, "/insights?limit=5", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = call(t, api, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["accounts"], 1)
	assert.Len(t, body["recent_transactions"], 5)
	assert.Len(t, body["recent_insights"], 1)

	status, body = call(t, api, http.MethodDelete, "/data", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "All data cleared", body["message"])

	status, _ = call(t, api, http.MethodPost, "/fetch_transactions", "")
	assert.Equal(t, http.StatusBadRequest, status, "no tokens after clear")
}

// TestPipeline_CSVExport writes the adjusted view of an OFX statement directory to CSV.
func TestPipeline_CSVExport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jan.ofx"), []byte(ofxStatement), 0600))

	cfg := newConfig(t, "", filepath.Join(t.TempDir(), "state.json"))
	cfg.Provider.Kind = config.ProviderOFX
	cfg.Storage.Backend = config.BackendFile
	c, err := container.NewContainer(context.Background(), cfg,
		container.WithLogger(logging.NewNopLogger()),
		container.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	ctx := context.Background()
	_, err = c.GetService().AddAccessToken(ctx, dir)
	require.NoError(t, err)
	count, err := c.GetService().FetchTransactions(ctx, 60)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	adjusted, err := c.GetService().GetAllAdjustedTransactions()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "adjusted.csv")
	require.NoError(t, c.GetCSVWriter().WriteFile(out, adjusted))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "MORTGAGE PAYMENT")
	assert.Contains(t, string(data), "2024-01-31")
	assert.Contains(t, string(data), "mortgage")
}

const ofxStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>1234
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9876543210
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000
<DTEND>20240131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000
<TRNAMT>-50.00
<FITID>TXN001
<NAME>GROCERY STORE
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240129120000
<TRNAMT>-3416.03
<FITID>TXN002
<NAME>MORTGAGE PAYMENT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20240131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`
