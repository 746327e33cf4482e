package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/models"
)

// objectStore is the slice of the GCS API the persister needs.
type objectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object string, data []byte) error
	Close() error
}

// GCSPersister keeps the snapshot as a single JSON object in a Cloud Storage bucket.
type GCSPersister struct {
	objects objectStore
	bucket  string
	object  string
}

// NewGCSPersister creates a storage client using application default credentials.
func NewGCSPersister(ctx context.Context, bucket, object string) (*GCSPersister, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return newGCSPersister(&gcsClient{client: client}, bucket, object), nil
}

func newGCSPersister(objects objectStore, bucket, object string) *GCSPersister {
	return &GCSPersister{objects: objects, bucket: bucket, object: object}
}

func (p *GCSPersister) Name() string { return "gcs" }

func (p *GCSPersister) Close() error { return p.objects.Close() }

func (p *GCSPersister) Load(ctx context.Context) (*models.Snapshot, error) {
	data, err := p.objects.Read(ctx, p.bucket, p.object)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return models.NewSnapshot(), nil
	}
	if err != nil {
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, &apperrors.PersistenceError{Backend: p.Name(), Op: "load", Err: err}
	}
	return snapshot, nil
}

func (p *GCSPersister) Save(ctx context.Context, snapshot *models.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err == nil {
		err = p.objects.Write(ctx, p.bucket, p.object, data)
	}
	if err != nil {
		return &apperrors.PersistenceError{Backend: p.Name(), Op: "save", Err: err}
	}
	return nil
}

type gcsClient struct {
	client *storage.Client
}

func (c *gcsClient) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// Write uploads data. GCS object writes are atomic: the object only changes when Close
// succeeds.
func (c *gcsClient) Write(ctx context.Context, bucket, object string, data []byte) error {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

func (c *gcsClient) Close() error {
	return c.client.Close()
}
