package store

import (
	"context"
	"errors"
	"os"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/fileutils"
	"fjacquet/finagent/internal/models"
)

// FilePersister keeps the snapshot in a JSON file, replaced atomically on each save.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Name() string { return "file" }

func (p *FilePersister) Close() error { return nil }

// Path returns the snapshot file location.
func (p *FilePersister) Path() string { return p.path }

func (p *FilePersister) Load(_ context.Context) (*models.Snapshot, error) {
	data, err := os.ReadFile(p.path) // #nosec G304 -- path comes from local configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewSnapshot(), nil
		}
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	return snapshot, nil
}

func (p *FilePersister) Save(_ context.Context, snapshot *models.Snapshot) error {
	if err := p.save(snapshot); err != nil {
		return &apperrors.PersistenceError{Backend: p.Name(), Op: "save", Err: err}
	}
	return nil
}

func (p *FilePersister) save(snapshot *models.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return fileutils.WriteFileAtomic(p.path, data, models.PermissionDataFile)
}
