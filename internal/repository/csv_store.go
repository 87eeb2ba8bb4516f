package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"grading-service/internal/config"
	"grading-service/internal/models"

	"go.uber.org/zap"
)

// CSVStore is the flat-file backend. The file is a delimited table whose
// column names are resolved through the configured mapping; the percentage
// column carries a trailing "%" marker that is stripped on read and
// re-added on write. Every save rewrites the whole file.
type CSVStore struct {
	path      string
	cols      config.ColumnMap
	condition models.Condition
	logger    *zap.Logger

	records []models.AnnotationRecord
	index   map[string]int // key -> position
}

// NewCSVStore creates a flat-file store. No I/O happens until LoadAll.
func NewCSVStore(path string, cols config.ColumnMap, condition models.Condition, logger *zap.Logger) *CSVStore {
	return &CSVStore{
		path:      path,
		cols:      cols,
		condition: condition,
		logger:    logger,
	}
}

// LoadAll reads and normalizes the full record sequence.
func (s *CSVStore) LoadAll(ctx context.Context) ([]models.AnnotationRecord, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrSourceUnavailable, s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", models.ErrSourceUnavailable, s.path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", models.ErrSourceUnavailable, s.path)
	}

	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}

	keyIdx := col(s.cols.Key)
	truthIdx := col(s.cols.GroundTruth)
	gradeIdx := col(s.cols.Grade)
	pctIdx := col(s.cols.Percentage)
	for name, idx := range map[string]int{
		s.cols.Key:         keyIdx,
		s.cols.GroundTruth: truthIdx,
		s.cols.Grade:       gradeIdx,
		s.cols.Percentage:  pctIdx,
	} {
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s is missing column %q", models.ErrSourceUnavailable, s.path, name)
		}
	}

	// Legacy sheets carried no labeled column; the flag is then inferred
	// from grade presence and the column is added on the next write.
	labeledIdx := -1
	if s.cols.Labeled != "" {
		labeledIdx = col(s.cols.Labeled)
	}
	typeIdx := -1
	if s.condition == models.ConditionPneumothorax && s.cols.PneumothoraxType != "" {
		typeIdx = col(s.cols.PneumothoraxType)
	}

	records := make([]models.AnnotationRecord, 0, len(rows)-1)
	index := make(map[string]int, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.AnnotationRecord{
			Key:         strings.TrimSpace(row[keyIdx]),
			GroundTruth: strings.TrimSpace(row[truthIdx]),
			Grade:       models.Grade(strings.TrimSpace(row[gradeIdx])),
			Percentage:  parsePercentage(row[pctIdx]),
		}
		if typeIdx >= 0 {
			rec.PneumothoraxType = strings.TrimSpace(row[typeIdx])
		}
		if labeledIdx >= 0 {
			rec.Labeled = parseBool(row[labeledIdx])
		} else {
			rec.Labeled = rec.Grade != ""
		}
		index[rec.Key] = len(records)
		records = append(records, rec)
	}

	s.records = records
	s.index = index

	s.logger.Info("CSV records loaded",
		zap.String("path", s.path),
		zap.Int("count", len(records)))

	return append([]models.AnnotationRecord(nil), records...), nil
}

// GetByPosition returns the record at position i in the loaded sequence.
func (s *CSVStore) GetByPosition(i int) (models.AnnotationRecord, error) {
	if i < 0 || i >= len(s.records) {
		return models.AnnotationRecord{}, fmt.Errorf("%w: position %d of %d", models.ErrIndexOutOfRange, i, len(s.records))
	}
	return s.records[i], nil
}

// Update applies the fields to the record with the given key and rewrites
// the file before returning.
func (s *CSVStore) Update(ctx context.Context, key string, fields RecordFields) (models.AnnotationRecord, error) {
	pos, ok := s.index[key]
	if !ok {
		return models.AnnotationRecord{}, fmt.Errorf("%w: key %q", models.ErrRecordNotFound, key)
	}

	prev := s.records[pos]
	rec := prev
	rec.Grade = fields.Grade
	rec.Percentage = fields.Percentage
	rec.PneumothoraxType = fields.PneumothoraxType
	if fields.Labeled {
		rec.Labeled = true
	}

	s.records[pos] = rec
	if err := s.writeFile(); err != nil {
		s.records[pos] = prev
		return models.AnnotationRecord{}, err
	}

	s.logger.Info("Record updated",
		zap.String("key", key),
		zap.String("grade", string(rec.Grade)),
		zap.Int("percentage", rec.Percentage))

	return rec, nil
}

// Persist rewrites the full record sequence to disk.
func (s *CSVStore) Persist(ctx context.Context) error {
	return s.writeFile()
}

// Close implements RecordStore; the file is not held open.
func (s *CSVStore) Close() error {
	return nil
}

// writeFile rewrites the whole file through a temp file so a failed write
// cannot leave a half-written table behind.
func (s *CSVStore) writeFile() error {
	header := []string{s.cols.Key, s.cols.GroundTruth, s.cols.Grade, s.cols.Percentage}
	typeCol := s.condition == models.ConditionPneumothorax && s.cols.PneumothoraxType != ""
	if typeCol {
		header = append(header, s.cols.PneumothoraxType)
	}
	labeledCol := s.cols.Labeled != ""
	if labeledCol {
		header = append(header, s.cols.Labeled)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".grading-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range s.records {
		row := []string{
			rec.Key,
			rec.GroundTruth,
			string(rec.Grade),
			formatPercentage(rec.Percentage),
		}
		if typeCol {
			row = append(row, rec.PneumothoraxType)
		}
		if labeledCol {
			row = append(row, strconv.FormatBool(rec.Labeled))
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write record %q: %w", rec.Key, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// parsePercentage normalizes a stored percentage string: surrounding
// whitespace and a trailing "%" marker are stripped, anything unparseable
// falls back to 0, and the result is clamped into [0,100] so the canonical
// in-memory value always honors the range invariant.
func parsePercentage(raw string) int {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(cleaned)

	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func formatPercentage(value int) string {
	return strconv.Itoa(value) + "%"
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
