package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// PostgresStore implements Store on a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to connString and creates the schema.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if err := createPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func createPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS covremap_runs (
			seq BIGSERIAL UNIQUE,
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			sources JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS covremap_file_coverage (
			run_id TEXT NOT NULL REFERENCES covremap_runs(id) ON DELETE CASCADE,
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
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddRun stores a run and its per-file coverage in one transaction.
func (s *PostgresStore) AddRun(run *types.Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}
	ctx := context.Background()

	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}
	rows, err := fileRows(run)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "INSERT INTO covremap_runs (id, created_at, sources) VALUES ($1, $2, $3)",
		run.ID, run.CreatedAt, string(sourcesJSON))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	insert := `INSERT INTO covremap_file_coverage (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insert, row.args(run.ID)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting coverage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *PostgresStore) GetRun(id string) (*types.Run, error) {
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, "SELECT id, created_at, sources FROM covremap_runs WHERE id = $1", id)
	return s.loadRun(ctx, row, id)
}

// LatestRun retrieves the most recently created run.
func (s *PostgresStore) LatestRun() (*types.Run, error) {
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_at, sources FROM covremap_runs
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`)
	return s.loadRun(ctx, row, "")
}

func (s *PostgresStore) loadRun(ctx context.Context, row pgx.Row, id string) (*types.Run, error) {
	var run types.Run
	var sourcesJSON []byte
	if err := row.Scan(&run.ID, &run.CreatedAt, &sourcesJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if id == "" {
				return nil, ErrRunNotFound
			}
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if err := json.Unmarshal(sourcesJSON, &run.Sources); err != nil {
		return nil, fmt.Errorf("unmarshaling sources: %w", err)
	}

	rows, err := s.pool.Query(ctx, "SELECT path, coverage_json FROM covremap_file_coverage WHERE run_id = $1", run.ID)
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

// ListRuns lists every run, oldest first.
func (s *PostgresStore) ListRuns() ([]*types.RunInfo, error) {
	ctx := context.Background()
	rows, err := s.pool.Query(ctx, "SELECT id, created_at FROM covremap_runs ORDER BY created_at, seq")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var infos []*types.RunInfo
	for rows.Next() {
		var info types.RunInfo
		var createdAt time.Time
		if err := rows.Scan(&info.ID, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		info.CreatedAt = createdAt.UTC()
		infos = append(infos, &info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for _, info := range infos {
		err := s.pool.QueryRow(ctx, "SELECT "+summaryAggregate+" FROM covremap_file_coverage WHERE run_id = $1", info.ID).
			Scan(summaryTargets(info)...)
		if err != nil {
			return nil, fmt.Errorf("summarizing run %s: %w", info.ID, err)
		}
		finishSummary(info)
	}
	return infos, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
