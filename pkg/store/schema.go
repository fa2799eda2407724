package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createRunsTable(db); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}

	if err := createFileCoverageTable(db); err != nil {
		return fmt.Errorf("creating file_coverage table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY NOT NULL,
			created_at TEXT NOT NULL,
			sources_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at)`)
	return err
}

func createFileCoverageTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS file_coverage (
			run_id TEXT NOT NULL REFERENCES runs(id),
			path TEXT NOT NULL,
			coverage_json TEXT NOT NULL,
			lines_total INTEGER NOT NULL,
			lines_covered INTEGER NOT NULL,
			statements_total INTEGER NOT NULL,
			statements_covered INTEGER NOT NULL,
			statements_skipped INTEGER NOT NULL,
			functions_total INTEGER NOT NULL,
			functions_covered INTEGER NOT NULL,
			functions_skipped INTEGER NOT NULL,
			branches_total INTEGER NOT NULL,
			branches_covered INTEGER NOT NULL,
			branches_skipped INTEGER NOT NULL,
			PRIMARY KEY (run_id, path)
		)
	`)
	return err
}

// fileColumns are the file_coverage columns written for every file, in order.
const fileColumns = `run_id, path, coverage_json,
	lines_total, lines_covered,
	statements_total, statements_covered, statements_skipped,
	functions_total, functions_covered, functions_skipped,
	branches_total, branches_covered, branches_skipped`

// summaryAggregate sums the summary columns of one run.
const summaryAggregate = `COUNT(*),
	COALESCE(SUM(lines_total), 0), COALESCE(SUM(lines_covered), 0),
	COALESCE(SUM(statements_total), 0), COALESCE(SUM(statements_covered), 0), COALESCE(SUM(statements_skipped), 0),
	COALESCE(SUM(functions_total), 0), COALESCE(SUM(functions_covered), 0), COALESCE(SUM(functions_skipped), 0),
	COALESCE(SUM(branches_total), 0), COALESCE(SUM(branches_covered), 0), COALESCE(SUM(branches_skipped), 0)`
