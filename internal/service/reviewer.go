package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"grading-service/internal/assets"
	"grading-service/internal/grading"
	"grading-service/internal/models"
	"grading-service/internal/repository"
	"grading-service/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoSession means the referenced review session does not exist or was
// replaced by a newer one.
var ErrNoSession = errors.New("no active review session")

// Reviewer drives one annotation session: it loads the record sequence,
// moves the cursor, and turns validated form submissions into store
// writes. All operations are serialized; each user action runs to
// completion before the next one is accepted.
type Reviewer struct {
	store       repository.RecordStore
	form        *grading.Form
	resolver    *assets.Resolver
	skipLabeled bool
	logger      *zap.Logger

	mu      sync.Mutex
	current *reviewSession
}

type reviewSession struct {
	id     string
	cursor *session.Cursor
}

// View is the state the UI renders for the record under the cursor.
type View struct {
	SessionID    string                  `json:"session_id"`
	Position     int                     `json:"position"`
	Total        int                     `json:"total"`
	Record       models.AnnotationRecord `json:"record"`
	Form         grading.FormState       `json:"form"`
	ImagePath    string                  `json:"image_path,omitempty"`
	ImageWarning string                  `json:"image_warning,omitempty"`
}

// SubmitResult reports a save. Record always reflects the durable local
// state; Synced is false when the remote push failed after the local
// write succeeded.
type SubmitResult struct {
	Record   models.AnnotationRecord `json:"record"`
	Synced   bool                    `json:"synced"`
	Advanced bool                    `json:"advanced"`
	View     View                    `json:"view"`
}

// NewReviewer creates the session service.
func NewReviewer(store repository.RecordStore, form *grading.Form, resolver *assets.Resolver, skipLabeled bool, logger *zap.Logger) *Reviewer {
	return &Reviewer{
		store:       store,
		form:        form,
		resolver:    resolver,
		skipLabeled: skipLabeled,
		logger:      logger,
	}
}

// StartSession loads the full record sequence and opens a fresh session
// positioned at the first record (or the first unlabeled one when
// configured to skip). A load failure aborts the session entirely.
func (r *Reviewer) StartSession(ctx context.Context) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.store.LoadAll(ctx)
	if err != nil {
		return View{}, err
	}

	s := &reviewSession{
		id:     uuid.New().String(),
		cursor: session.NewCursor(len(records)),
	}
	r.current = s

	if r.skipLabeled {
		position, found := s.cursor.SkipLabeled(r.labeledAt)
		if !found {
			r.logger.Info("No unlabeled records remain",
				zap.String("session_id", s.id),
				zap.Int("position", position))
		}
	}

	r.logger.Info("Review session started",
		zap.String("session_id", s.id),
		zap.Int("records", len(records)))

	return r.viewLocked(s)
}

// Current returns the view at the cursor.
func (r *Reviewer) Current(sessionID string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return View{}, err
	}
	return r.viewLocked(s)
}

// Advance moves to the next record, staying at the last one.
func (r *Reviewer) Advance(sessionID string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return View{}, err
	}
	s.cursor.Advance()
	return r.viewLocked(s)
}

// Retreat moves to the previous record, staying at the first one.
func (r *Reviewer) Retreat(sessionID string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return View{}, err
	}
	s.cursor.Retreat()
	return r.viewLocked(s)
}

// SkipLabeled advances past already-graded records. The second return
// value is false when every remaining record is labeled; the cursor then
// rests at the last record.
func (r *Reviewer) SkipLabeled(sessionID string) (View, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return View{}, false, err
	}

	_, found := s.cursor.SkipLabeled(r.labeledAt)
	view, err := r.viewLocked(s)
	return view, found, err
}

// Submit validates the input against the record under the cursor, writes
// the update through the store and persists. A validation or update
// failure leaves the store untouched. When only the remote push fails the
// returned result still carries the durable local record alongside the
// persist error, and the cursor stays put so the reviewer can retry.
func (r *Reviewer) Submit(ctx context.Context, sessionID string, in grading.Input) (SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}

	rec, err := r.store.GetByPosition(s.cursor.Position())
	if err != nil {
		return SubmitResult{}, err
	}

	updated, err := r.form.Submit(rec, in)
	if err != nil {
		return SubmitResult{}, err
	}

	stored, err := r.store.Update(ctx, updated.Key, repository.RecordFields{
		Grade:            updated.Grade,
		Percentage:       updated.Percentage,
		PneumothoraxType: updated.PneumothoraxType,
		Labeled:          true,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Record: stored}

	if err := r.store.Persist(ctx); err != nil {
		r.logger.Warn("Persist failed after local update",
			zap.String("key", stored.Key),
			zap.Error(err))
		view, verr := r.viewLocked(s)
		if verr == nil {
			result.View = view
		}
		return result, err
	}
	result.Synced = true

	s.cursor.Advance()
	result.Advanced = true

	view, err := r.viewLocked(s)
	if err != nil {
		return result, err
	}
	result.View = view
	return result, nil
}

// Records returns the current state of the full sequence.
func (r *Reviewer) Records(sessionID string) ([]models.AnnotationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.sessionLocked(sessionID)
	if err != nil {
		return nil, err
	}

	records := make([]models.AnnotationRecord, 0, s.cursor.Total())
	for i := 0; i < s.cursor.Total(); i++ {
		rec, err := r.store.GetByPosition(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Derived exposes the measurement formula for live recomputation in the
// UI.
func (r *Reviewer) Derived(a, b, c float64) grading.DerivedResult {
	return r.form.Derived(a, b, c)
}

// Condition returns the grading domain of this deployment.
func (r *Reviewer) Condition() models.Condition {
	return r.form.Condition()
}

func (r *Reviewer) sessionLocked(sessionID string) (*reviewSession, error) {
	if r.current == nil || r.current.id != sessionID {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, sessionID)
	}
	return r.current, nil
}

func (r *Reviewer) labeledAt(position int) bool {
	rec, err := r.store.GetByPosition(position)
	if err != nil {
		return false
	}
	return rec.Labeled
}

func (r *Reviewer) viewLocked(s *reviewSession) (View, error) {
	view := View{
		SessionID: s.id,
		Position:  s.cursor.Position(),
		Total:     s.cursor.Total(),
	}
	if s.cursor.Total() == 0 {
		return view, nil
	}

	rec, err := r.store.GetByPosition(s.cursor.Position())
	if err != nil {
		return View{}, err
	}
	view.Record = rec
	view.Form = r.form.Defaults(rec)

	path, err := r.resolver.Resolve(rec.Key)
	if err != nil {
		// A missing image never blocks grading.
		view.ImageWarning = err.Error()
	} else {
		view.ImagePath = path
	}

	return view, nil
}
