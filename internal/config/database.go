package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// InitDatabase creates the database schema from scratch
// POC-friendly: auto-creates tables on startup
// Set DROP_TABLES_ON_STARTUP=true environment variable to drop existing tables
func InitDatabase(db *sql.DB) error {
	if os.Getenv("DROP_TABLES_ON_STARTUP") == "true" {
		log.Println("Dropping existing tables (DROP_TABLES_ON_STARTUP=true)...")
		drops := []string{
			"DROP TABLE IF EXISTS medication_logs CASCADE",
			"DROP TABLE IF EXISTS glp1_treatments CASCADE",
			"DROP TABLE IF EXISTS weight_entries CASCADE",
			"DROP TABLE IF EXISTS sleep_records CASCADE",
			"DROP TABLE IF EXISTS activity_records CASCADE",
			"DROP TABLE IF EXISTS heart_records CASCADE",
		}
		for _, stmt := range drops {
			if _, err := db.Exec(stmt); err != nil {
				log.Printf("Warning: Failed to drop table: %v", err)
			}
		}
	} else {
		log.Println("Skipping table drop (set DROP_TABLES_ON_STARTUP=true to drop tables on startup)")
	}

	schemas := []string{
		// One sleep snapshot per user and day; sync re-delivers whole days
		`CREATE TABLE IF NOT EXISTS sleep_records (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			date DATE NOT NULL,
			total_duration DOUBLE PRECISION NOT NULL,
			deep_sleep DOUBLE PRECISION NOT NULL,
			rem_sleep DOUBLE PRECISION NOT NULL,
			light_sleep DOUBLE PRECISION NOT NULL,
			awake_time DOUBLE PRECISION NOT NULL,
			heart_rate_avg DOUBLE PRECISION,
			created_at TIMESTAMP DEFAULT now(),
			CONSTRAINT uq_sleep_user_date UNIQUE (user_id, date),
			CONSTRAINT chk_sleep_durations CHECK (
				total_duration >= 0 AND deep_sleep >= 0 AND rem_sleep >= 0 AND
				light_sleep >= 0 AND awake_time >= 0
			)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_records (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			date DATE NOT NULL,
			steps INTEGER NOT NULL,
			active_calories INTEGER NOT NULL,
			exercise_minutes INTEGER NOT NULL,
			stand_hours INTEGER NOT NULL,
			distance_meters DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP DEFAULT now(),
			CONSTRAINT uq_activity_user_date UNIQUE (user_id, date),
			CONSTRAINT chk_activity_values CHECK (
				steps >= 0 AND active_calories >= 0 AND exercise_minutes >= 0 AND
				stand_hours >= 0 AND distance_meters >= 0
			)
		)`,
		`CREATE TABLE IF NOT EXISTS heart_records (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			date DATE NOT NULL,
			resting_heart_rate DOUBLE PRECISION NOT NULL,
			hrv DOUBLE PRECISION,
			created_at TIMESTAMP DEFAULT now(),
			CONSTRAINT uq_heart_user_date UNIQUE (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS glp1_treatments (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			medication TEXT NOT NULL,
			start_date TIMESTAMP NOT NULL,
			start_weight DOUBLE PRECISION NOT NULL,
			target_weight DOUBLE PRECISION,
			current_dose DOUBLE PRECISION NOT NULL,
			current_dose_start_date TIMESTAMP NOT NULL,
			preferred_injection_day INTEGER,
			notes TEXT,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP DEFAULT now(),
			updated_at TIMESTAMP DEFAULT now(),
			CONSTRAINT chk_start_weight CHECK (start_weight > 0),
			CONSTRAINT chk_injection_day CHECK (
				preferred_injection_day IS NULL OR
				(preferred_injection_day >= 1 AND preferred_injection_day <= 7)
			)
		)`,
		`CREATE TABLE IF NOT EXISTS medication_logs (
			id UUID PRIMARY KEY,
			treatment_id UUID NOT NULL REFERENCES glp1_treatments(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			type TEXT NOT NULL,
			dose DOUBLE PRECISION NOT NULL,
			logged_at TIMESTAMP NOT NULL,
			notes TEXT,
			created_at TIMESTAMP DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS weight_entries (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			body_fat DOUBLE PRECISION,
			recorded_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT now(),
			CONSTRAINT chk_weight CHECK (weight > 0)
		)`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sleep_records_user_date ON sleep_records(user_id, date)",
		"CREATE INDEX IF NOT EXISTS idx_activity_records_user_date ON activity_records(user_id, date)",
		"CREATE INDEX IF NOT EXISTS idx_heart_records_user_date ON heart_records(user_id, date)",
		"CREATE INDEX IF NOT EXISTS idx_treatments_user_active ON glp1_treatments(user_id, active)",
		"CREATE INDEX IF NOT EXISTS idx_medication_logs_treatment ON medication_logs(treatment_id, logged_at)",
		"CREATE INDEX IF NOT EXISTS idx_weight_entries_user_recorded ON weight_entries(user_id, recorded_at)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Printf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		if err = db.Ping(); err != nil {
			log.Printf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Println("Database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
