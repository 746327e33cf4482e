// Package apperrors defines the error types shared across ingestion, reclassification and
// the service layer.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrNoTransactions is returned when there is nothing to aggregate.
var ErrNoTransactions = errors.New("no transactions available")

// ErrNoAccessTokens is returned when a fetch is requested before any token is registered.
var ErrNoAccessTokens = errors.New("no access tokens registered")

// DataSourceError represents a failure talking to a banking-data provider
type DataSourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// InvalidDateError represents a transaction whose date could not be understood.
// The batch containing it is rejected as a whole.
type InvalidDateError struct {
	TransactionID string
	Value         string
	Err           error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction %s has invalid date '%s': %v", e.TransactionID, e.Value, e.Err)
	}
	return fmt.Sprintf("transaction %s has invalid date '%s'", e.TransactionID, e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// ProfileError represents an invalid early-payment profile definition
type ProfileError struct {
	Source string
	Index  int
	Err    error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("invalid profile #%d in %s: %v", e.Index+1, e.Source, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// PersistenceError represents a failure loading or saving the state snapshot
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s snapshot %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsDataSource reports whether err came from a provider.
func IsDataSource(err error) bool {
	var dsErr *DataSourceError
	return errors.As(err, &dsErr)
}

// IsInvalidDate reports whether err is an invalid date rejection.
func IsInvalidDate(err error) bool {
	var dateErr *InvalidDateError
	return errors.As(err, &dateErr)
}
