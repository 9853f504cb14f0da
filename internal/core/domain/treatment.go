package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GLP1Medication identifies a supported GLP-1 medication
type GLP1Medication string

const (
	MedicationSemaglutide GLP1Medication = "semaglutide"
	MedicationTirzepatide GLP1Medication = "tirzepatide"
	MedicationLiraglutide GLP1Medication = "liraglutide"
	MedicationDulaglutide GLP1Medication = "dulaglutide"
)

// MedicationSpec holds the fixed per-medication constants: an ordered,
// strictly increasing dose schedule and the minimum weeks to hold each dose.
// Compiled into the engine; not user data.
type MedicationSpec struct {
	DisplayName  string    `json:"display_name"`
	DoseSchedule []float64 `json:"dose_schedule"` // mg, strictly increasing
	WeeksPerDose int       `json:"weeks_per_dose"`
	IsWeekly     bool      `json:"is_weekly"`
	Unit         string    `json:"unit"`
}

var medicationSpecs = map[GLP1Medication]MedicationSpec{
	MedicationSemaglutide: {
		DisplayName:  "Semaglutide",
		DoseSchedule: []float64{0.25, 0.5, 1.0, 1.7, 2.4},
		WeeksPerDose: 4,
		IsWeekly:     true,
		Unit:         "mg",
	},
	MedicationTirzepatide: {
		DisplayName:  "Tirzepatide",
		DoseSchedule: []float64{2.5, 5.0, 7.5, 10.0, 12.5, 15.0},
		WeeksPerDose: 4,
		IsWeekly:     true,
		Unit:         "mg",
	},
	MedicationLiraglutide: {
		DisplayName:  "Liraglutide",
		DoseSchedule: []float64{0.6, 1.2, 1.8, 2.4, 3.0},
		WeeksPerDose: 1,
		IsWeekly:     false, // daily injection
		Unit:         "mg",
	},
	MedicationDulaglutide: {
		DisplayName:  "Dulaglutide",
		DoseSchedule: []float64{0.75, 1.5, 3.0, 4.5},
		WeeksPerDose: 4,
		IsWeekly:     true,
		Unit:         "mg",
	},
}

// Spec returns the compiled-in constants for a medication
func (m GLP1Medication) Spec() (MedicationSpec, bool) {
	spec, ok := medicationSpecs[m]
	return spec, ok
}

// IsValidMedication checks if a medication is supported
func IsValidMedication(m GLP1Medication) bool {
	_, ok := medicationSpecs[m]
	return ok
}

// SupportedMedications returns the supported medication identifiers
func SupportedMedications() []GLP1Medication {
	return []GLP1Medication{
		MedicationSemaglutide,
		MedicationTirzepatide,
		MedicationLiraglutide,
		MedicationDulaglutide,
	}
}

// GLP1Treatment is a user's medication treatment record.
// CurrentDose must always be a member of the medication's dose schedule;
// CurrentDoseStartDate resets whenever CurrentDose changes, and dose
// escalation is the only mutator of that pair.
type GLP1Treatment struct {
	ID                    uuid.UUID      `json:"id"`
	UserID                uuid.UUID      `json:"user_id"`
	Medication            GLP1Medication `json:"medication"`
	StartDate             time.Time      `json:"start_date"`
	StartWeight           float64        `json:"start_weight"` // kg
	TargetWeight          *float64       `json:"target_weight,omitempty"`
	CurrentDose           float64        `json:"current_dose"`
	CurrentDoseStartDate  time.Time      `json:"current_dose_start_date"`
	PreferredInjectionDay *int           `json:"preferred_injection_day,omitempty"` // 1=Monday..7=Sunday
	Notes                 string         `json:"notes,omitempty"`
	Active                bool           `json:"active"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Validate checks the treatment's data-integrity invariants.
// Violations signal an upstream bug in the data the core was given.
func (t *GLP1Treatment) Validate() error {
	if !IsValidMedication(t.Medication) {
		return fmt.Errorf("%w: unsupported medication %q", ErrInvariantViolation, t.Medication)
	}
	if t.StartWeight <= 0 {
		return fmt.Errorf("%w: start weight must be positive, got %g", ErrInvariantViolation, t.StartWeight)
	}
	if _, err := t.CurrentDoseIndex(); err != nil {
		return err
	}
	if t.PreferredInjectionDay != nil && (*t.PreferredInjectionDay < 1 || *t.PreferredInjectionDay > 7) {
		return fmt.Errorf("%w: preferred injection day must be 1-7, got %d", ErrInvariantViolation, *t.PreferredInjectionDay)
	}
	return nil
}

// WeeksOnCurrentDose returns whole weeks since the current dose started,
// floored and never negative
func (t *GLP1Treatment) WeeksOnCurrentDose(now time.Time) int {
	if !now.After(t.CurrentDoseStartDate) {
		return 0
	}
	return int(now.Sub(t.CurrentDoseStartDate).Hours() / (24 * 7))
}

// WeeksOnTreatment returns whole weeks since the treatment started, floored
// and never negative
func (t *GLP1Treatment) WeeksOnTreatment(now time.Time) int {
	if !now.After(t.StartDate) {
		return 0
	}
	return int(now.Sub(t.StartDate).Hours() / (24 * 7))
}

// CurrentDoseIndex returns the position of the current dose in the
// medication's schedule. A missing dose is an invariant violation, not a
// user-facing error: the ownership rule guarantees it cannot happen with
// well-formed data.
func (t *GLP1Treatment) CurrentDoseIndex() (int, error) {
	spec, ok := t.Medication.Spec()
	if !ok {
		return 0, fmt.Errorf("%w: unsupported medication %q", ErrInvariantViolation, t.Medication)
	}
	for i, dose := range spec.DoseSchedule {
		if dose == t.CurrentDose {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: dose %g not in %s schedule", ErrInvariantViolation, t.CurrentDose, t.Medication)
}

// NextDose returns the next scheduled dose, or nil at the terminal dose
func (t *GLP1Treatment) NextDose() *float64 {
	spec, ok := t.Medication.Spec()
	if !ok {
		return nil
	}
	idx, err := t.CurrentDoseIndex()
	if err != nil || idx >= len(spec.DoseSchedule)-1 {
		return nil
	}
	next := spec.DoseSchedule[idx+1]
	return &next
}

// IsAtMaxDose reports whether the treatment is at the last schedule entry
func (t *GLP1Treatment) IsAtMaxDose() bool {
	spec, ok := t.Medication.Spec()
	if !ok {
		return false
	}
	idx, err := t.CurrentDoseIndex()
	if err != nil {
		return false
	}
	return idx == len(spec.DoseSchedule)-1
}

// IsReadyForDoseIncrease reports eligibility for the next dose: enough whole
// weeks on the current dose and a next dose to move to. The transition itself
// is an external action; the engine only reports eligibility.
func (t *GLP1Treatment) IsReadyForDoseIncrease(now time.Time) bool {
	spec, ok := t.Medication.Spec()
	if !ok {
		return false
	}
	if t.NextDose() == nil {
		return false
	}
	return t.WeeksOnCurrentDose(now) >= spec.WeeksPerDose
}

// NextInjectionDate computes the next occurrence of the preferred injection
// day strictly after today (ISO weekday, Monday=1). Non-weekly medications or
// an unset preferred day yield nil rather than an error.
func (t *GLP1Treatment) NextInjectionDate(today time.Time) *time.Time {
	spec, ok := t.Medication.Spec()
	if !ok || !spec.IsWeekly || t.PreferredInjectionDay == nil {
		return nil
	}
	preferred := *t.PreferredInjectionDay
	if preferred < 1 || preferred > 7 {
		return nil
	}

	offset := preferred - isoWeekday(today)
	if offset <= 0 {
		offset += 7
	}
	next := today.AddDate(0, 0, offset)
	return &next
}

// isoWeekday maps time.Weekday (Sunday=0) to ISO numbering (Monday=1..Sunday=7)
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// MedicationLogType distinguishes medication log entries
type MedicationLogType string

const (
	LogTypeDoseChange MedicationLogType = "dose_change"
	LogTypeInjection  MedicationLogType = "injection"
)

// MedicationLog records one treatment event (an injection taken or a dose
// escalation performed)
type MedicationLog struct {
	ID          uuid.UUID         `json:"id"`
	TreatmentID uuid.UUID         `json:"treatment_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Type        MedicationLogType `json:"type"`
	Dose        float64           `json:"dose"` // mg
	LoggedAt    time.Time         `json:"logged_at"`
	Notes       string            `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
