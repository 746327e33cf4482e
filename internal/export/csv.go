// Package export writes adjusted transactions to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"fjacquet/finagent/internal/fileutils"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
)

// DefaultDelimiter separates CSV fields unless overridden.
const DefaultDelimiter = ','

// Row is one exported line.
type Row struct {
	TransactionID  string `csv:"TransactionID"`
	AccountID      string `csv:"AccountID"`
	PostedDate     string `csv:"PostedDate"`
	EffectiveDate  string `csv:"EffectiveDate"`
	WasAdjusted    string `csv:"WasAdjusted"`
	MatchedProfile string `csv:"MatchedProfile"`
	Amount         string `csv:"Amount"`
	Description    string `csv:"Description"`
	Category       string `csv:"Category"`
	Merchant       string `csv:"Merchant"`
}

// ToRows flattens adjusted transactions. Category paths are joined with " > ".
func ToRows(adjusted []models.AdjustedTransaction) []Row {
	rows := make([]Row, 0, len(adjusted))
	for _, a := range adjusted {
		merchant, _ := a.Merchant()
		rows = append(rows, Row{
			TransactionID:  a.ID,
			AccountID:      a.AccountID,
			PostedDate:     a.PostedDate.String(),
			EffectiveDate:  a.EffectiveDate.String(),
			WasAdjusted:    strconv.FormatBool(a.WasAdjusted),
			MatchedProfile: a.MatchedProfile,
			Amount:         a.Amount.StringFixed(models.MoneyPlaces),
			Description:    a.Description,
			Category:       strings.Join(a.CategoryPath, " > "),
			Merchant:       merchant,
		})
	}
	return rows
}

// Writer writes CSV with a configurable delimiter.
type Writer struct {
	Delimiter rune
	logger    logging.Logger
}

// NewWriter creates a Writer using DefaultDelimiter.
func NewWriter(logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Writer{Delimiter: DefaultDelimiter, logger: logger.WithField(logging.FieldComponent, "export")}
}

// Write encodes adjusted to w with a header line.
func (w *Writer) Write(out io.Writer, adjusted []models.AdjustedTransaction) error {
	if adjusted == nil {
		return fmt.Errorf("cannot write nil transactions to CSV")
	}

	csvWriter := csv.NewWriter(out)
	csvWriter.Comma = w.Delimiter

	if err := gocsv.MarshalCSV(ToRows(adjusted), gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteFile writes adjusted to path, creating parent directories as needed.
func (w *Writer) WriteFile(path string, adjusted []models.AdjustedTransaction) error {
	log := w.logger.WithFields(logging.F(logging.FieldPath, path), logging.F(logging.FieldCount, len(adjusted)))

	file, err := fileutils.CreateFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := w.Write(file, adjusted); err != nil {
		log.WithError(err).Error("Failed to marshal transactions to CSV")
		return err
	}
	log.Info("Wrote adjusted transactions to CSV file")
	return nil
}
