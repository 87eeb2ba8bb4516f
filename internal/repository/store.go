package repository

import (
	"context"

	"grading-service/internal/models"
)

// RecordFields is the partial update a save applies to a record. Key and
// ground truth are never part of it.
type RecordFields struct {
	Grade            models.Grade
	Percentage       int
	PneumothoraxType string
	Labeled          bool
}

// RecordStore is the single contract the three persistence backends
// (relational table, local CSV, remotely synced CSV) present to the rest
// of the system.
//
// LoadAll reads the full ordered record sequence once per session start
// and fails with models.ErrSourceUnavailable if the backing medium cannot
// be read. Update writes the full updated state to the backing medium
// before returning; a successful call leaves no dirty state behind.
// Persist rewrites the full sequence for file-backed stores and, for the
// remote store, additionally pushes it with the content version captured
// at load time (models.ErrConcurrentModification on mismatch,
// models.ErrSyncFailure on transport failure, local copy durable in both
// cases).
type RecordStore interface {
	LoadAll(ctx context.Context) ([]models.AnnotationRecord, error)
	GetByPosition(i int) (models.AnnotationRecord, error)
	Update(ctx context.Context, key string, fields RecordFields) (models.AnnotationRecord, error)
	Persist(ctx context.Context) error
	Close() error
}
