// Package ofxsource serves accounts and transactions from downloaded OFX/QFX statements.
// The access token is a statement file path, or a directory whose .ofx and .qfx files
// are read together.
package ofxsource

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/dateutils"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/provider"
	"fjacquet/finagent/internal/scanner"
)

// SourceName identifies the OFX source in errors and logs.
const SourceName = "ofx"

// Source implements provider.DataSource over OFX files.
type Source struct {
	scanner *scanner.StatementScanner
	logger  logging.Logger
}

var _ provider.DataSource = (*Source)(nil)

// New creates a Source.
func New(logger logging.Logger) *Source {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Source{
		scanner: scanner.NewStatementScanner(logger, ".ofx", ".qfx"),
		logger:  logger.WithFields(logging.F(logging.FieldComponent, "ofxsource"), logging.F(logging.FieldSource, SourceName)),
	}
}

func (s *Source) Name() string { return SourceName }

type statement struct {
	account      models.Account
	transactions []provider.RawTransaction
}

// FetchAccounts returns the account of every statement, once per account ID.
func (s *Source) FetchAccounts(ctx context.Context, token string) ([]models.Account, error) {
	statements, err := s.load(ctx, token)
	if err != nil {
		return nil, &apperrors.DataSourceError{Source: SourceName, Op: "fetch accounts", Err: err}
	}
	// Later statements of the same account carry the more recent balance.
	accounts := make([]models.Account, 0, len(statements))
	index := make(map[string]int, len(statements))
	for _, st := range statements {
		if i, ok := index[st.account.ID]; ok {
			accounts[i] = st.account
			continue
		}
		index[st.account.ID] = len(accounts)
		accounts = append(accounts, st.account)
	}
	return accounts, nil
}

// FetchTransactions returns the statement transactions posted within [start, end].
func (s *Source) FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]models.Transaction, error) {
	statements, err := s.load(ctx, token)
	if err != nil {
		return nil, &apperrors.DataSourceError{Source: SourceName, Op: "fetch transactions", Err: err}
	}

	var raw []provider.RawTransaction
	for _, st := range statements {
		raw = append(raw, st.transactions...)
	}
	txs, err := provider.Normalize(raw)
	if err != nil {
		return nil, err
	}

	from := models.DateOf(start)
	to := models.DateOf(end)
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.PostedDate.Before(from) || tx.PostedDate.After(to) {
			continue
		}
		out = append(out, tx)
	}
	s.logger.Debug("Read OFX transactions",
		logging.F(logging.FieldPath, token),
		logging.F(logging.FieldCount, len(out)),
		logging.F(logging.FieldTotal, len(txs)))
	return provider.Dedupe(out), nil
}

func (s *Source) load(ctx context.Context, path string) ([]statement, error) {
	files, err := s.scanner.ScanPaths(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no OFX files found in %s", path)
	}

	var statements []statement
	for _, file := range files {
		content, err := os.ReadFile(file) // #nosec G304 -- the token is a local statement path
		if err != nil {
			return nil, fmt.Errorf("failed to read OFX file: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed, err := parse(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		statements = append(statements, parsed...)
	}
	return statements, nil
}

func parse(content []byte) ([]statement, error) {
	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file (%d bytes): %w", len(content), err)
	}

	org := strings.TrimSpace(response.Signon.Org.String())
	var statements []statement

	for _, msg := range response.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		acctID := stmt.BankAcctFrom.AcctID.String()
		subtype := strings.ToLower(stmt.BankAcctFrom.AcctType.String())
		balance := toDecimal(stmt.BalAmt)
		account := models.NewAccount(acctID, accountName(org, subtype, acctID), "depository", &subtype, &balance)
		statements = append(statements, statement{account: account, transactions: transactionsOf(acctID, stmt.BankTranList)})
	}

	for _, msg := range response.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		acctID := stmt.CCAcctFrom.AcctID.String()
		subtype := "credit card"
		balance := toDecimal(stmt.BalAmt)
		account := models.NewAccount(acctID, accountName(org, subtype, acctID), "credit", &subtype, &balance)
		statements = append(statements, statement{account: account, transactions: transactionsOf(acctID, stmt.BankTranList)})
	}

	if len(statements) == 0 {
		return nil, fmt.Errorf("no bank or credit card statement found in OFX file")
	}
	return statements, nil
}

// transactionsOf converts OFX records. OFX amounts are negative for debits; the sign is
// flipped so that spending is positive.
func transactionsOf(accountID string, list *ofxgo.TransactionList) []provider.RawTransaction {
	if list == nil {
		return nil
	}
	out := make([]provider.RawTransaction, 0, len(list.Transactions))
	for _, txn := range list.Transactions {
		posted := txn.DtPosted.Time
		date := ""
		if !posted.IsZero() {
			date = dateutils.ToISODate(posted)
		}

		description := strings.TrimSpace(txn.Name.String())
		if description == "" {
			description = strings.TrimSpace(txn.Memo.String())
		}

		var merchant *string
		if txn.Payee != nil {
			merchant = models.StringPtr(strings.TrimSpace(txn.Payee.Name.String()))
		}

		out = append(out, provider.RawTransaction{
			ID:           txn.FiTID.String(),
			AccountID:    accountID,
			AmountText:   toDecimal(txn.TrnAmt).Neg().String(),
			Date:         date,
			Name:         description,
			MerchantName: merchant,
		})
	}
	return out
}

func toDecimal(amount ofxgo.Amount) decimal.Decimal {
	d, err := decimal.NewFromString(amount.FloatString(4))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func accountName(org, subtype, acctID string) string {
	suffix := acctID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	name := fmt.Sprintf("%s ...%s", titleCase(subtype), suffix)
	if org != "" {
		name = org + " " + name
	}
	return name
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
