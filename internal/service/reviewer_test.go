package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grading-service/internal/assets"
	"grading-service/internal/config"
	"grading-service/internal/grading"
	"grading-service/internal/models"
	"grading-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var csvCols = config.ColumnMap{
	Key:         "Image_ID",
	GroundTruth: "Ground_Truth",
	Grade:       "Pneumonia_Grading",
	Percentage:  "Percentage of Grade",
	Labeled:     "Labeled",
}

func newTestReviewer(t *testing.T, csvContent string, skipLabeled bool) (*Reviewer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "grading.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvContent), 0o644))

	store := repository.NewCSVStore(path, csvCols, models.ConditionPneumonia, zap.NewNop())
	form := grading.NewForm(models.ConditionPneumonia)
	resolver := assets.NewResolver(filepath.Join(dir, "images"), nil)
	return NewReviewer(store, form, resolver, skipLabeled, zap.NewNop()), path
}

const twoRecords = `Image_ID,Ground_Truth,Pneumonia_Grading,Percentage of Grade,Labeled
img1,positive,,,false
img2,negative,Mild,50%,true
`

func TestSessionScenarioSubmitAndAdvance(t *testing.T) {
	reviewer, path := newTestReviewer(t, twoRecords, false)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.Position)
	assert.Equal(t, 2, view.Total)

	// Defaults for the unlabeled record
	assert.Equal(t, models.GradeNoPneumonia, view.Form.Grade)
	assert.Equal(t, 0, view.Form.Percentage)
	assert.NotEmpty(t, view.ImageWarning, "missing image is a warning, not a failure")

	result, err := reviewer.Submit(context.Background(), view.SessionID, grading.Input{
		Grade:      models.GradeModerate,
		Percentage: 70,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GradeModerate, result.Record.Grade)
	assert.Equal(t, 70, result.Record.Percentage)
	assert.True(t, result.Record.Labeled)
	assert.True(t, result.Synced)
	assert.True(t, result.Advanced)
	assert.Equal(t, 1, result.View.Position)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "img1,positive,Moderate,70%,true")
}

func TestSubmitValidationErrorLeavesStoreUntouched(t *testing.T) {
	reviewer, path := newTestReviewer(t, twoRecords, false)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)

	_, err = reviewer.Submit(context.Background(), view.SessionID, grading.Input{
		Grade:      models.GradeMild,
		Percentage: 120,
	})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "percentage", vErr.Field)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "store state before == after")

	current, err := reviewer.Current(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Position, "cursor stays put on rejection")
}

func TestNavigationBoundaries(t *testing.T) {
	reviewer, _ := newTestReviewer(t, twoRecords, false)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)

	view, err = reviewer.Retreat(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Position)

	view, err = reviewer.Advance(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)

	view, err = reviewer.Advance(view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position, "advance at the last record is a no-op")
}

func TestSkipLabeledAllLabeled(t *testing.T) {
	allLabeled := `Image_ID,Ground_Truth,Pneumonia_Grading,Percentage of Grade,Labeled
img1,positive,Mild,10%,true
img2,negative,Mild,20%,true
img3,positive,Severe,90%,true
`
	reviewer, _ := newTestReviewer(t, allLabeled, false)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)

	view, found, err := reviewer.SkipLabeled(view.SessionID)
	require.NoError(t, err)
	assert.False(t, found, "no unlabeled records remain")
	assert.Equal(t, 2, view.Position, "cursor rests at the last record")
}

func TestStartSessionSkipsLabeledWhenConfigured(t *testing.T) {
	mixed := `Image_ID,Ground_Truth,Pneumonia_Grading,Percentage of Grade,Labeled
img1,positive,Mild,10%,true
img2,negative,,,false
`
	reviewer, _ := newTestReviewer(t, mixed, true)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, "img2", view.Record.Key)
}

func TestStartSessionFailsFastOnMissingSource(t *testing.T) {
	store := repository.NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"), csvCols, models.ConditionPneumonia, zap.NewNop())
	reviewer := NewReviewer(store, grading.NewForm(models.ConditionPneumonia), assets.NewResolver(t.TempDir(), nil), false, zap.NewNop())

	_, err := reviewer.StartSession(context.Background())
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)

	_, err = reviewer.Current("any")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestUnknownSessionID(t *testing.T) {
	reviewer, _ := newTestReviewer(t, twoRecords, false)

	_, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)

	_, err = reviewer.Current("not-a-session")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRecordsReflectUpdates(t *testing.T) {
	reviewer, _ := newTestReviewer(t, twoRecords, false)

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)

	_, err = reviewer.Submit(context.Background(), view.SessionID, grading.Input{
		Grade:      models.GradeCritical,
		Percentage: 95,
	})
	require.NoError(t, err)

	records, err := reviewer.Records(view.SessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.GradeCritical, records[0].Grade)
	assert.Equal(t, 95, records[0].Percentage)
}

func TestImagePathResolvedWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grading.csv")
	require.NoError(t, os.WriteFile(path, []byte(twoRecords), 0o644))

	imagesDir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "img1.jpg"), []byte("x"), 0o644))

	store := repository.NewCSVStore(path, csvCols, models.ConditionPneumonia, zap.NewNop())
	reviewer := NewReviewer(store, grading.NewForm(models.ConditionPneumonia),
		assets.NewResolver(imagesDir, nil), false, zap.NewNop())

	view, err := reviewer.StartSession(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(view.ImagePath, "img1.jpg"))
	assert.Empty(t, view.ImageWarning)
}
