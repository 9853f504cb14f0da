package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// SQLRepository implements HealthRecordRepository, TreatmentRepository and
// WeightRepository using PostgreSQL
// Includes retry logic and circuit breakers for resilience
type SQLRepository struct {
	db          *sql.DB
	recordCB    *gobreaker.CircuitBreaker
	treatmentCB *gobreaker.CircuitBreaker
	weightCB    *gobreaker.CircuitBreaker
	maxRetries  int
	retryDelay  time.Duration
}

// NewSQLRepository creates a new PostgreSQL repository with circuit breakers
func NewSQLRepository(db *sql.DB) *SQLRepository {
	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &SQLRepository{
		db:          db,
		recordCB:    gobreaker.NewCircuitBreaker(settings),
		treatmentCB: gobreaker.NewCircuitBreaker(settings),
		weightCB:    gobreaker.NewCircuitBreaker(settings),
		maxRetries:  3,
		retryDelay:  1 * time.Second,
	}
}

// executeWithRetry executes a database operation with retry logic
func (r *SQLRepository) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		// Don't retry on sql.ErrNoRows - it's not a transient error
		if errors.Is(err, sql.ErrNoRows) ||
			strings.Contains(strings.ToLower(err.Error()), "no rows") {
			return err
		}
		if i < r.maxRetries-1 {
			time.Sleep(r.retryDelay)
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", r.maxRetries, lastErr)
}

// HealthRecordRepository implementation

func (r *SQLRepository) SaveSleepRecord(ctx context.Context, record *domain.SleepRecord) error {
	_, err := r.recordCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			// Sync re-delivers whole days, so the day's row is replaced
			query := `INSERT INTO sleep_records (
				id, user_id, date, total_duration, deep_sleep, rem_sleep,
				light_sleep, awake_time, heart_rate_avg, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (user_id, date) DO UPDATE SET
				total_duration = EXCLUDED.total_duration,
				deep_sleep = EXCLUDED.deep_sleep,
				rem_sleep = EXCLUDED.rem_sleep,
				light_sleep = EXCLUDED.light_sleep,
				awake_time = EXCLUDED.awake_time,
				heart_rate_avg = EXCLUDED.heart_rate_avg`
			_, err := r.db.ExecContext(ctx, query,
				record.ID, record.UserID, record.Date, record.TotalDuration,
				record.DeepSleep, record.RemSleep, record.LightSleep,
				record.AwakeTime, record.HeartRateAvg, record.CreatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) SaveActivityRecord(ctx context.Context, record *domain.ActivityRecord) error {
	_, err := r.recordCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO activity_records (
				id, user_id, date, steps, active_calories, exercise_minutes,
				stand_hours, distance_meters, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id, date) DO UPDATE SET
				steps = EXCLUDED.steps,
				active_calories = EXCLUDED.active_calories,
				exercise_minutes = EXCLUDED.exercise_minutes,
				stand_hours = EXCLUDED.stand_hours,
				distance_meters = EXCLUDED.distance_meters`
			_, err := r.db.ExecContext(ctx, query,
				record.ID, record.UserID, record.Date, record.Steps,
				record.ActiveCalories, record.ExerciseMinutes,
				record.StandHours, record.DistanceMeters, record.CreatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) SaveHeartRecord(ctx context.Context, record *domain.HeartRecord) error {
	_, err := r.recordCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO heart_records (
				id, user_id, date, resting_heart_rate, hrv, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, date) DO UPDATE SET
				resting_heart_rate = EXCLUDED.resting_heart_rate,
				hrv = EXCLUDED.hrv`
			_, err := r.db.ExecContext(ctx, query,
				record.ID, record.UserID, record.Date,
				record.RestingHeartRate, record.HRV, record.CreatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) GetSleepRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.SleepRecord, error) {
	result, err := r.recordCB.Execute(func() (interface{}, error) {
		var record domain.SleepRecord
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, date, total_duration, deep_sleep, rem_sleep,
				light_sleep, awake_time, heart_rate_avg, created_at
				FROM sleep_records WHERE user_id = $1 AND date = $2`
			row := r.db.QueryRowContext(ctx, query, userID, date)
			var heartRateAvg sql.NullFloat64
			err := row.Scan(&record.ID, &record.UserID, &record.Date,
				&record.TotalDuration, &record.DeepSleep, &record.RemSleep,
				&record.LightSleep, &record.AwakeTime, &heartRateAvg, &record.CreatedAt)
			if err != nil {
				return err
			}
			if heartRateAvg.Valid {
				record.HeartRateAvg = &heartRateAvg.Float64
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &record, nil
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.(*domain.SleepRecord), nil
}

func (r *SQLRepository) GetActivityRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.ActivityRecord, error) {
	result, err := r.recordCB.Execute(func() (interface{}, error) {
		var record domain.ActivityRecord
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, date, steps, active_calories, exercise_minutes,
				stand_hours, distance_meters, created_at
				FROM activity_records WHERE user_id = $1 AND date = $2`
			row := r.db.QueryRowContext(ctx, query, userID, date)
			return row.Scan(&record.ID, &record.UserID, &record.Date,
				&record.Steps, &record.ActiveCalories, &record.ExerciseMinutes,
				&record.StandHours, &record.DistanceMeters, &record.CreatedAt)
		})
		if err != nil {
			return nil, err
		}
		return &record, nil
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.(*domain.ActivityRecord), nil
}

func (r *SQLRepository) GetHeartRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.HeartRecord, error) {
	result, err := r.recordCB.Execute(func() (interface{}, error) {
		var record domain.HeartRecord
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, date, resting_heart_rate, hrv, created_at
				FROM heart_records WHERE user_id = $1 AND date = $2`
			row := r.db.QueryRowContext(ctx, query, userID, date)
			var hrv sql.NullFloat64
			err := row.Scan(&record.ID, &record.UserID, &record.Date,
				&record.RestingHeartRate, &hrv, &record.CreatedAt)
			if err != nil {
				return err
			}
			if hrv.Valid {
				record.HRV = &hrv.Float64
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &record, nil
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.(*domain.HeartRecord), nil
}

// TreatmentRepository implementation

func (r *SQLRepository) CreateTreatment(ctx context.Context, treatment *domain.GLP1Treatment) error {
	_, err := r.treatmentCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO glp1_treatments (
				id, user_id, medication, start_date, start_weight, target_weight,
				current_dose, current_dose_start_date, preferred_injection_day,
				notes, active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
			_, err := r.db.ExecContext(ctx, query,
				treatment.ID, treatment.UserID, string(treatment.Medication),
				treatment.StartDate, treatment.StartWeight, treatment.TargetWeight,
				treatment.CurrentDose, treatment.CurrentDoseStartDate,
				treatment.PreferredInjectionDay, treatment.Notes, treatment.Active,
				treatment.CreatedAt, treatment.UpdatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) GetActiveTreatment(ctx context.Context, userID uuid.UUID) (*domain.GLP1Treatment, error) {
	result, err := r.treatmentCB.Execute(func() (interface{}, error) {
		var t domain.GLP1Treatment
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, medication, start_date, start_weight, target_weight,
				current_dose, current_dose_start_date, preferred_injection_day,
				notes, active, created_at, updated_at
				FROM glp1_treatments
				WHERE user_id = $1 AND active = true
				ORDER BY created_at DESC LIMIT 1`
			row := r.db.QueryRowContext(ctx, query, userID)
			var medication string
			var targetWeight sql.NullFloat64
			var injectionDay sql.NullInt64
			var notes sql.NullString
			err := row.Scan(&t.ID, &t.UserID, &medication, &t.StartDate,
				&t.StartWeight, &targetWeight, &t.CurrentDose,
				&t.CurrentDoseStartDate, &injectionDay, &notes, &t.Active,
				&t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				return err
			}
			t.Medication = domain.GLP1Medication(medication)
			if targetWeight.Valid {
				t.TargetWeight = &targetWeight.Float64
			}
			if injectionDay.Valid {
				day := int(injectionDay.Int64)
				t.PreferredInjectionDay = &day
			}
			if notes.Valid {
				t.Notes = notes.String
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &t, nil
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.(*domain.GLP1Treatment), nil
}

func (r *SQLRepository) UpdateDose(ctx context.Context, treatmentID uuid.UUID, dose float64, doseStartDate time.Time) error {
	_, err := r.treatmentCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `UPDATE glp1_treatments
				SET current_dose = $2, current_dose_start_date = $3, updated_at = now()
				WHERE id = $1`
			result, err := r.db.ExecContext(ctx, query, treatmentID, dose, doseStartDate)
			if err != nil {
				return err
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return fmt.Errorf("treatment not found")
			}
			return nil
		})
	})
	return err
}

func (r *SQLRepository) CreateMedicationLog(ctx context.Context, entry *domain.MedicationLog) error {
	_, err := r.treatmentCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO medication_logs (
				id, treatment_id, user_id, type, dose, logged_at, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
			_, err := r.db.ExecContext(ctx, query,
				entry.ID, entry.TreatmentID, entry.UserID, string(entry.Type),
				entry.Dose, entry.LoggedAt, entry.Notes, entry.CreatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) ListMedicationLogs(ctx context.Context, treatmentID uuid.UUID, limit *int) ([]*domain.MedicationLog, error) {
	result, err := r.treatmentCB.Execute(func() (interface{}, error) {
		var logs []*domain.MedicationLog
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, treatment_id, user_id, type, dose, logged_at, notes, created_at
				FROM medication_logs WHERE treatment_id = $1
				ORDER BY logged_at DESC`
			args := []interface{}{treatmentID}
			if limit != nil {
				query += " LIMIT $2"
				args = append(args, *limit)
			}

			rows, queryErr := r.db.QueryContext(ctx, query, args...)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			for rows.Next() {
				var entry domain.MedicationLog
				var logType string
				var notes sql.NullString
				if err := rows.Scan(&entry.ID, &entry.TreatmentID, &entry.UserID,
					&logType, &entry.Dose, &entry.LoggedAt, &notes, &entry.CreatedAt); err != nil {
					return err
				}
				entry.Type = domain.MedicationLogType(logType)
				if notes.Valid {
					entry.Notes = notes.String
				}
				logs = append(logs, &entry)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return logs, nil
	})

	if err != nil {
		return nil, err
	}
	return result.([]*domain.MedicationLog), nil
}

// WeightRepository implementation

func (r *SQLRepository) CreateWeightEntry(ctx context.Context, entry *domain.WeightEntry) error {
	_, err := r.weightCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO weight_entries (
				id, user_id, weight, body_fat, recorded_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)`
			_, err := r.db.ExecContext(ctx, query,
				entry.ID, entry.UserID, entry.Weight, entry.BodyFat,
				entry.RecordedAt, entry.CreatedAt,
			)
			return err
		})
	})
	return err
}

func (r *SQLRepository) GetLatestWeight(ctx context.Context, userID uuid.UUID) (*domain.WeightEntry, error) {
	result, err := r.weightCB.Execute(func() (interface{}, error) {
		var entry domain.WeightEntry
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, weight, body_fat, recorded_at, created_at
				FROM weight_entries WHERE user_id = $1
				ORDER BY recorded_at DESC LIMIT 1`
			row := r.db.QueryRowContext(ctx, query, userID)
			var bodyFat sql.NullFloat64
			err := row.Scan(&entry.ID, &entry.UserID, &entry.Weight,
				&bodyFat, &entry.RecordedAt, &entry.CreatedAt)
			if err != nil {
				return err
			}
			if bodyFat.Valid {
				entry.BodyFat = &bodyFat.Float64
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &entry, nil
	})

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.(*domain.WeightEntry), nil
}

func (r *SQLRepository) ListWeightEntries(ctx context.Context, userID uuid.UUID, limit *int) ([]*domain.WeightEntry, error) {
	result, err := r.weightCB.Execute(func() (interface{}, error) {
		var entries []*domain.WeightEntry
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, weight, body_fat, recorded_at, created_at
				FROM weight_entries WHERE user_id = $1
				ORDER BY recorded_at DESC`
			args := []interface{}{userID}
			if limit != nil {
				query += " LIMIT $2"
				args = append(args, *limit)
			}

			rows, queryErr := r.db.QueryContext(ctx, query, args...)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			for rows.Next() {
				var entry domain.WeightEntry
				var bodyFat sql.NullFloat64
				if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Weight,
					&bodyFat, &entry.RecordedAt, &entry.CreatedAt); err != nil {
					return err
				}
				if bodyFat.Valid {
					entry.BodyFat = &bodyFat.Float64
				}
				entries = append(entries, &entry)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return entries, nil
	})

	if err != nil {
		return nil, err
	}
	return result.([]*domain.WeightEntry), nil
}

// isNoRows detects sql.ErrNoRows even when wrapped by retry or breaker layers
func isNoRows(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no rows")
}

// Ensure SQLRepository implements the interfaces
var _ ports.HealthRecordRepository = (*SQLRepository)(nil)
var _ ports.TreatmentRepository = (*SQLRepository)(nil)
var _ ports.WeightRepository = (*SQLRepository)(nil)
