package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_reports",
		SQL: `CREATE TABLE IF NOT EXISTS reports (
  id             UUID          PRIMARY KEY,
  owner_id       UUID          NOT NULL,
  ticker         TEXT          NOT NULL,
  company_name   TEXT          NOT NULL,
  overall_score  NUMERIC(5,2)  NOT NULL CHECK (overall_score >= 0 AND overall_score <= 100),
  recommendation TEXT          NOT NULL CHECK (recommendation IN ('BUY', 'SELL', 'HOLD')),
  model_used     TEXT          NOT NULL,
  rendered_key   TEXT,
  source_key     TEXT,
  size           BIGINT        NOT NULL CHECK (size >= 0),
  created_at     TIMESTAMPTZ   NOT NULL,
  expires_at     TIMESTAMPTZ   NOT NULL,
  CHECK (rendered_key IS NOT NULL OR source_key IS NOT NULL),
  CHECK (expires_at > created_at)
);`,
	},
	{
		Name: "create_index_reports_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reports_owner_id ON reports (owner_id);`,
	},
	{
		Name: "create_index_reports_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reports_expires_at ON reports (expires_at);`,
	},
	{
		Name: "create_index_reports_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);`,
	},
}

// EnsureMigrated checks if the 'reports' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.reports') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
