// Package grading derives the editable view of a record and validates the
// reviewer's input into a write-back payload.
package grading

import (
	"fmt"

	"grading-service/internal/models"
)

// Form applies the default-resolution and validation rules for one
// condition's enumerations.
type Form struct {
	condition models.Condition
}

// NewForm creates a form model for the given condition.
func NewForm(condition models.Condition) *Form {
	return &Form{condition: condition}
}

// FormState is the displayed, editable state derived from a record.
type FormState struct {
	Grade            models.Grade `json:"grade"`
	Percentage       int          `json:"percentage"`
	PneumothoraxType string       `json:"pneumothorax_type,omitempty"`
}

// Input is the reviewer's submission. Measurements are optional; when all
// three are present the pneumothorax percentage is derived from them.
type Input struct {
	Grade            models.Grade `json:"grade"`
	Percentage       int          `json:"percentage"`
	PneumothoraxType string       `json:"pneumothorax_type"`
	MeasurementA     *float64     `json:"measurement_a"`
	MeasurementB     *float64     `json:"measurement_b"`
	MeasurementC     *float64     `json:"measurement_c"`
}

// DerivedResult is the outcome of the measurement formula. The value is
// deliberately not clamped; OutOfRange flags results the stored-value
// range would reject so the UI can warn instead of silently correcting.
type DerivedResult struct {
	Percentage float64 `json:"percentage"`
	OutOfRange bool    `json:"out_of_range"`
}

// Condition returns the condition this form validates against.
func (f *Form) Condition() models.Condition {
	return f.condition
}

// Defaults computes the displayed default state for a record. Unknown or
// absent stored values are coerced, never rejected: a grade outside the
// enumeration displays as the none member, a percentage outside the range
// displays as 0.
func (f *Form) Defaults(rec models.AnnotationRecord) FormState {
	state := FormState{
		Grade:      rec.Grade,
		Percentage: rec.Percentage,
	}

	if !models.ValidGrade(f.condition, state.Grade) {
		state.Grade = models.NoneGrade(f.condition)
	}
	if state.Percentage < 0 || state.Percentage > 100 {
		state.Percentage = 0
	}

	if f.condition == models.ConditionPneumothorax {
		state.PneumothoraxType = rec.PneumothoraxType
		if !models.ValidPneumothoraxType(state.PneumothoraxType) {
			state.PneumothoraxType = "None"
		}
	}

	return state
}

// Derived computes the pneumothorax percentage from the three
// measurements. The stored percentage is only the initial display default;
// once any measurement changes the value comes from here.
func (f *Form) Derived(a, b, c float64) DerivedResult {
	value := 4.2 + 4.7*a + b + c
	return DerivedResult{
		Percentage: value,
		OutOfRange: value < 0 || value > 100,
	}
}

// Submit validates the input and builds the updated record. It fails with
// a *models.ValidationError naming the first offending field; on success
// the returned record has all mutable fields replaced and the label flag
// set, with key and ground truth untouched.
func (f *Form) Submit(rec models.AnnotationRecord, in Input) (models.AnnotationRecord, error) {
	if !models.ValidGrade(f.condition, in.Grade) {
		return models.AnnotationRecord{}, &models.ValidationError{
			Field:  "grade",
			Reason: fmt.Sprintf("%q is not a member of the %s grading scale", in.Grade, f.condition),
		}
	}

	if in.Percentage < 0 || in.Percentage > 100 {
		return models.AnnotationRecord{}, &models.ValidationError{
			Field:  "percentage",
			Reason: fmt.Sprintf("%d is outside [0,100]", in.Percentage),
		}
	}

	if f.condition == models.ConditionPneumothorax {
		if in.PneumothoraxType == "" {
			in.PneumothoraxType = "None"
		}
		if !models.ValidPneumothoraxType(in.PneumothoraxType) {
			return models.AnnotationRecord{}, &models.ValidationError{
				Field:  "pneumothorax_type",
				Reason: fmt.Sprintf("%q is not a known pneumothorax type", in.PneumothoraxType),
			}
		}

		measurements := []struct {
			field string
			value *float64
		}{
			{"measurement_a", in.MeasurementA},
			{"measurement_b", in.MeasurementB},
			{"measurement_c", in.MeasurementC},
		}
		for _, m := range measurements {
			if m.value == nil {
				continue
			}
			if *m.value < 0 || *m.value > 100 {
				return models.AnnotationRecord{}, &models.ValidationError{
					Field:  m.field,
					Reason: fmt.Sprintf("%g is outside [0,100]", *m.value),
				}
			}
		}
	}

	rec.Grade = in.Grade
	rec.Percentage = in.Percentage
	if f.condition == models.ConditionPneumothorax {
		rec.PneumothoraxType = in.PneumothoraxType
		if in.MeasurementA != nil {
			rec.MeasurementA = *in.MeasurementA
		}
		if in.MeasurementB != nil {
			rec.MeasurementB = *in.MeasurementB
		}
		if in.MeasurementC != nil {
			rec.MeasurementC = *in.MeasurementC
		}
	}
	rec.Labeled = true

	return rec, nil
}
