package store

import (
	"context"
	"sync"

	"fjacquet/finagent/internal/models"
)

// MockPersister is an in-memory Persister for tests.
type MockPersister struct {
	mu     sync.Mutex
	Stored *models.Snapshot
	Saves  int
	closed bool

	// Error flags for testing error conditions
	LoadError  error
	SaveError  error
	CloseError error
}

// NewMockPersister returns an empty MockPersister.
func NewMockPersister() *MockPersister {
	return &MockPersister{}
}

func (m *MockPersister) Name() string { return "mock" }

func (m *MockPersister) Load(_ context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Stored == nil {
		return models.NewSnapshot(), nil
	}
	return m.Stored.Clone(), nil
}

func (m *MockPersister) Save(_ context.Context, snapshot *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Stored = snapshot.Clone()
	m.Saves++
	return nil
}

func (m *MockPersister) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

// SetSaveError changes the save failure under the lock.
func (m *MockPersister) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveError = err
}

// Closed reports whether Close was called.
func (m *MockPersister) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Last returns a copy of the most recently saved snapshot, or nil.
func (m *MockPersister) Last() *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Stored == nil {
		return nil
	}
	return m.Stored.Clone()
}
