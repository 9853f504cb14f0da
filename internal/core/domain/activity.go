package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityRecord is one day's activity snapshot. Distances are meters.
type ActivityRecord struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Date            time.Time `json:"date"`
	Steps           int       `json:"steps"`
	ActiveCalories  int       `json:"active_calories"` // kcal
	ExerciseMinutes int       `json:"exercise_minutes"`
	StandHours      int       `json:"stand_hours"`
	DistanceMeters  float64   `json:"distance_meters"`
	CreatedAt       time.Time `json:"created_at"`
}

// Per-term caps of the additive activity score
const (
	stepsTermCap    = 30
	exerciseTermCap = 30
	standTermCap    = 20
	caloriesTermCap = 20

	stepsTermGoal    = 10000
	standTermGoal    = 12
	caloriesTermGoal = 500
)

// Score computes the 0-100 activity score: four independently capped terms
// (steps 30, exercise 30, stand 20, calories 20) summed and clamped to 100.
//
// Divisions truncate on the scaled product (steps*30/10000), not on the
// ratio. The truncation is carried over from the original formulas verbatim;
// confirm with product before changing it to rounded floating point.
func (a *ActivityRecord) Score() int {
	score := 0

	steps := a.Steps * stepsTermCap / stepsTermGoal
	if steps > stepsTermCap {
		steps = stepsTermCap
	}
	score += steps

	exercise := a.ExerciseMinutes
	if exercise > exerciseTermCap {
		exercise = exerciseTermCap
	}
	score += exercise

	stand := a.StandHours * standTermCap / standTermGoal
	if stand > standTermCap {
		stand = standTermCap
	}
	score += stand

	calories := a.ActiveCalories * caloriesTermCap / caloriesTermGoal
	if calories > caloriesTermCap {
		calories = caloriesTermCap
	}
	score += calories

	if score > 100 {
		score = 100
	}
	return score
}
