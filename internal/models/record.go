package models

// Condition selects the grading domain for a deployment. It decides the
// grade enumeration and which extension fields a record carries.
type Condition string

const (
	ConditionPneumonia    Condition = "pneumonia"
	ConditionPneumothorax Condition = "pneumothorax"
)

// Grade is a categorical severity label.
type Grade string

const (
	GradeNoPneumonia    Grade = "No Pneumonia"
	GradeNoPneumothorax Grade = "No Pneumothorax"
	GradeMild           Grade = "Mild"
	GradeModerate       Grade = "Moderate"
	GradeSevere         Grade = "Severe"
	GradeCritical       Grade = "Critical"
)

// gradeScales maps each condition to its ordered enumeration. The first
// member is the "no condition" default used when a stored value is absent
// or unrecognized.
var gradeScales = map[Condition][]Grade{
	ConditionPneumonia:    {GradeNoPneumonia, GradeMild, GradeModerate, GradeSevere, GradeCritical},
	ConditionPneumothorax: {GradeNoPneumothorax, GradeMild, GradeModerate, GradeSevere, GradeCritical},
}

// PneumothoraxTypes is the type enumeration for the pneumothorax condition.
// "None" is the default member.
var PneumothoraxTypes = []string{"None", "Simple", "Open", "Tension"}

// GradeScale returns the ordered grade enumeration for a condition.
func GradeScale(c Condition) []Grade {
	return gradeScales[c]
}

// NoneGrade returns the "no condition" member of a condition's enumeration.
func NoneGrade(c Condition) Grade {
	scale := gradeScales[c]
	if len(scale) == 0 {
		return ""
	}
	return scale[0]
}

// ValidGrade reports whether g is a member of the condition's enumeration.
func ValidGrade(c Condition, g Grade) bool {
	for _, member := range gradeScales[c] {
		if member == g {
			return true
		}
	}
	return false
}

// ValidPneumothoraxType reports whether t is a member of the type enumeration.
func ValidPneumothoraxType(t string) bool {
	for _, member := range PneumothoraxTypes {
		if member == t {
			return true
		}
	}
	return false
}

// AnnotationRecord is the annotation state of one image under review.
// Key and GroundTruth are set at ingestion and never mutated by the
// reviewer; Percentage is always a bare integer in [0,100] in memory,
// the "%" marker exists only inside text-store serialization.
type AnnotationRecord struct {
	Key              string  `json:"key" db:"image_id"`
	GroundTruth      string  `json:"ground_truth" db:"ground_truth"`
	Grade            Grade   `json:"grade" db:"grading"`
	Percentage       int     `json:"percentage" db:"percentage_grade"`
	Labeled          bool    `json:"labeled" db:"labeled"`
	PneumothoraxType string  `json:"pneumothorax_type,omitempty" db:"pneumothorax_type"`
	MeasurementA     float64 `json:"measurement_a,omitempty" db:"-"`
	MeasurementB     float64 `json:"measurement_b,omitempty" db:"-"`
	MeasurementC     float64 `json:"measurement_c,omitempty" db:"-"`
}
