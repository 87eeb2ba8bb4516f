package repository

import (
	"context"
	"fmt"

	"grading-service/internal/config"
	"grading-service/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the relational backend: one table, one row per image,
// percentage stored as an unmarked integer. Each Update is durable on its
// own, so Persist has nothing left to write.
type SQLiteStore struct {
	db        *sqlx.DB
	table     string
	cols      config.ColumnMap
	condition models.Condition
	logger    *zap.Logger

	records []models.AnnotationRecord
	index   map[string]int
}

// NewSQLiteStore opens the database and creates the grading table if it
// does not exist yet.
func NewSQLiteStore(path, table string, cols config.ColumnMap, condition models.Condition, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:        db,
		table:     table,
		cols:      cols,
		condition: condition,
		logger:    logger,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Grading repository initialized",
		zap.String("db_path", path),
		zap.String("table", table))

	return store, nil
}

// migrate creates the grading table
func (s *SQLiteStore) migrate() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		%q TEXT NOT NULL UNIQUE,
		%q TEXT,
		%q INTEGER DEFAULT 0,
		%q TEXT,
		%q BOOLEAN DEFAULT 0,
		%q TEXT
	);
	`, s.table, s.cols.Key, s.cols.Grade, s.cols.Percentage,
		s.cols.GroundTruth, s.cols.Labeled, s.cols.PneumothoraxType)

	_, err := s.db.Exec(schema)
	return err
}

// LoadAll reads the full record sequence in insertion order. Column names
// are aliased to the canonical field names once here so the scan target
// never sees backend naming.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]models.AnnotationRecord, error) {
	query := fmt.Sprintf(`
		SELECT %q AS image_id,
		       COALESCE(%q, '') AS ground_truth,
		       COALESCE(%q, '') AS grading,
		       COALESCE(%q, 0) AS percentage_grade,
		       COALESCE(%q, 0) AS labeled,
		       COALESCE(%q, '') AS pneumothorax_type
		FROM %q
		ORDER BY id
	`, s.cols.Key, s.cols.GroundTruth, s.cols.Grade, s.cols.Percentage,
		s.cols.Labeled, s.cols.PneumothoraxType, s.table)

	var records []models.AnnotationRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", models.ErrSourceUnavailable, s.table, err)
	}

	index := make(map[string]int, len(records))
	for i := range records {
		// The canonical in-memory percentage is always in [0,100]
		// even if the table holds a stray value.
		if records[i].Percentage < 0 {
			records[i].Percentage = 0
		}
		if records[i].Percentage > 100 {
			records[i].Percentage = 100
		}
		index[records[i].Key] = i
	}

	s.records = records
	s.index = index

	s.logger.Info("Records loaded",
		zap.String("table", s.table),
		zap.Int("count", len(records)))

	return append([]models.AnnotationRecord(nil), records...), nil
}

// GetByPosition returns the record at position i in the loaded sequence.
func (s *SQLiteStore) GetByPosition(i int) (models.AnnotationRecord, error) {
	if i < 0 || i >= len(s.records) {
		return models.AnnotationRecord{}, fmt.Errorf("%w: position %d of %d", models.ErrIndexOutOfRange, i, len(s.records))
	}
	return s.records[i], nil
}

// Update writes the fields to the row with the given key. The row is
// durable once the call returns.
func (s *SQLiteStore) Update(ctx context.Context, key string, fields RecordFields) (models.AnnotationRecord, error) {
	pos, ok := s.index[key]
	if !ok {
		return models.AnnotationRecord{}, fmt.Errorf("%w: key %q", models.ErrRecordNotFound, key)
	}

	query := fmt.Sprintf(`
		UPDATE %q
		SET %q = ?, %q = ?, %q = ?, %q = ?
		WHERE %q = ?
	`, s.table, s.cols.Grade, s.cols.Percentage, s.cols.Labeled,
		s.cols.PneumothoraxType, s.cols.Key)

	labeled := fields.Labeled || s.records[pos].Labeled

	result, err := s.db.ExecContext(ctx, query,
		string(fields.Grade), fields.Percentage, labeled, fields.PneumothoraxType, key)
	if err != nil {
		return models.AnnotationRecord{}, fmt.Errorf("failed to update record %q: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.AnnotationRecord{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return models.AnnotationRecord{}, fmt.Errorf("%w: key %q", models.ErrRecordNotFound, key)
	}

	rec := s.records[pos]
	rec.Grade = fields.Grade
	rec.Percentage = fields.Percentage
	rec.PneumothoraxType = fields.PneumothoraxType
	rec.Labeled = labeled
	s.records[pos] = rec

	s.logger.Info("Record updated",
		zap.String("key", key),
		zap.String("grade", string(rec.Grade)),
		zap.Int("percentage", rec.Percentage))

	return rec, nil
}

// Persist is a no-op for the relational backend; every Update commits on
// its own.
func (s *SQLiteStore) Persist(ctx context.Context) error {
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
