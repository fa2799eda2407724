package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/praetorian-inc/covremap/pkg/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddRun stores a run and its per-file coverage in one transaction.
func (s *SQLiteStore) AddRun(run *types.Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}

	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}
	rows, err := fileRows(run)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO runs (id, created_at, sources_json) VALUES (?, ?, ?)",
		run.ID, formatTime(run.CreatedAt), string(sourcesJSON))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO file_coverage (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.args(run.ID)...); err != nil {
			return fmt.Errorf("inserting coverage of %s: %w", row.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	return s.loadRun(s.db.QueryRow("SELECT id, created_at, sources_json FROM runs WHERE id = ?", id), id)
}

// LatestRun retrieves the most recently created run.
func (s *SQLiteStore) LatestRun() (*types.Run, error) {
	return s.loadRun(s.db.QueryRow(`
		SELECT id, created_at, sources_json FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`), "")
}

func (s *SQLiteStore) loadRun(row *sql.Row, id string) (*types.Run, error) {
	var run types.Run
	var createdAt, sourcesJSON string
	if err := row.Scan(&run.ID, &createdAt, &sourcesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if id == "" {
				return nil, ErrRunNotFound
			}
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}

	var err error
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing run time: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &run.Sources); err != nil {
		return nil, fmt.Errorf("unmarshaling sources: %w", err)
	}

	rows, err := s.db.Query("SELECT path, coverage_json FROM file_coverage WHERE run_id = ?", run.ID)
	if err != nil {
		return nil, fmt.Errorf("querying coverage: %w", err)
	}
	defer rows.Close()

	run.Coverage = types.CoverageMap{}
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, fmt.Errorf("scanning coverage: %w", err)
		}
		fc, err := decodeFile(path, data)
		if err != nil {
			return nil, err
		}
		run.Coverage[path] = fc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coverage: %w", err)
	}

	return &run, nil
}

// ListRuns lists every run, oldest first, summarizing from stored columns.
func (s *SQLiteStore) ListRuns() ([]*types.RunInfo, error) {
	rows, err := s.db.Query("SELECT id, created_at FROM runs ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var infos []*types.RunInfo
	for rows.Next() {
		var info types.RunInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if info.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing run time: %w", err)
		}
		infos = append(infos, &info)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	rows.Close()

	for _, info := range infos {
		err := s.db.QueryRow("SELECT "+summaryAggregate+" FROM file_coverage WHERE run_id = ?", info.ID).
			Scan(summaryTargets(info)...)
		if err != nil {
			return nil, fmt.Errorf("summarizing run %s: %w", info.ID, err)
		}
		finishSummary(info)
	}

	return infos, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
