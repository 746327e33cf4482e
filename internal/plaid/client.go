// Package plaid is a minimal Plaid REST client covering the two read endpoints the
// service needs: /accounts/get and /transactions/get.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/time/rate"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/dateutils"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/provider"
)

// SourceName identifies Plaid in errors and logs.
const SourceName = "plaid"

// Environment hosts
const (
	SandboxURL     = "https://sandbox.plaid.com"
	DevelopmentURL = "https://development.plaid.com"
	ProductionURL  = "https://production.plaid.com"
)

// Pagination limits
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// Options configures a Client.
type Options struct {
	ClientID          string
	Secret            string
	Environment       string
	BaseURL           string // overrides Environment when set
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client implements provider.DataSource against the Plaid API.
type Client struct {
	clientID string
	secret   string
	baseURL  string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
	logger   logging.Logger
}

var _ provider.DataSource = (*Client)(nil)

// BaseURLFor maps an environment name to its API host.
func BaseURLFor(environment string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "", "sandbox":
		return SandboxURL, nil
	case "development":
		return DevelopmentURL, nil
	case "production":
		return ProductionURL, nil
	default:
		return "", fmt.Errorf("unknown plaid environment %q", environment)
	}
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options, logger logging.Logger) (*Client, error) {
	if opts.ClientID == "" || opts.Secret == "" {
		return nil, fmt.Errorf("plaid client id and secret are required")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		var err error
		if baseURL, err = BaseURLFor(opts.Environment); err != nil {
			return nil, err
		}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		clientID: opts.ClientID,
		secret:   opts.Secret,
		baseURL:  baseURL,
		pageSize: pageSize,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.WithFields(logging.F(logging.FieldComponent, "plaid"), logging.F(logging.FieldSource, SourceName)),
	}, nil
}

func (c *Client) Name() string { return SourceName }

// FetchAccounts calls /accounts/get.
func (c *Client) FetchAccounts(ctx context.Context, token string) ([]models.Account, error) {
	var resp accountsResponse
	if err := c.post(ctx, "/accounts/get", accountsRequest{credentials: c.credentials(token)}, &resp); err != nil {
		return nil, &apperrors.DataSourceError{Source: SourceName, Op: "fetch accounts", Err: err}
	}

	accounts := make([]models.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, a.toModel())
	}
	c.logger.Debug("Fetched accounts",
		logging.F(logging.FieldToken, logging.MaskToken(token)),
		logging.F(logging.FieldCount, len(accounts)))
	return accounts, nil
}

// FetchTransactions pages through /transactions/get until the reported total is reached.
// A short or empty page before that point ends the loop; the shortfall is logged and the
// records received so far are returned.
func (c *Client) FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]models.Transaction, error) {
	var raw []provider.RawTransaction
	total := -1
	for page := 0; total < 0 || len(raw) < total; page++ {
		req := transactionsRequest{
			credentials: c.credentials(token),
			StartDate:   dateutils.ToISODate(start),
			EndDate:     dateutils.ToISODate(end),
			Options:     transactionsOptions{Count: c.pageSize, Offset: len(raw)},
		}
		var resp transactionsResponse
		if err := c.post(ctx, "/transactions/get", req, &resp); err != nil {
			return nil, &apperrors.DataSourceError{Source: SourceName, Op: "fetch transactions", Err: err}
		}

		total = resp.TotalTransactions
		for _, tx := range resp.Transactions {
			raw = append(raw, tx.toRaw())
		}
		c.logger.Debug("Fetched transaction page",
			logging.F(logging.FieldPage, page),
			logging.F(logging.FieldCount, len(resp.Transactions)),
			logging.F(logging.FieldTotal, total))

		if len(resp.Transactions) == 0 {
			break
		}
	}
	if total >= 0 && len(raw) != total {
		c.logger.Warn("Transaction count differs from reported total",
			logging.F(logging.FieldCount, len(raw)),
			logging.F(logging.FieldTotal, total))
	}

	txs, err := provider.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return provider.Dedupe(txs), nil
}

func (c *Client) credentials(token string) credentials {
	return credentials{ClientID: c.clientID, Secret: c.secret, AccessToken: token}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	resp, err := ctxhttp.Post(ctx, c.http, c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("Plaid request completed",
		logging.F(logging.FieldRequestPath, path),
		logging.F(logging.FieldStatus, resp.StatusCode),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.ErrorCode == "" {
			apiErr.ErrorMessage = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
