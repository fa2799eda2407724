package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	RunsMerged       int
	FilesMerged      int
	SourcesProcessed int
}

// Merge combines multiple covremap databases into one.
// Deduplication is handled via INSERT OR IGNORE on primary keys.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := sql.Open("sqlite", cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}

	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.RunsMerged += sourceStats.RunsMerged
		stats.FilesMerged += sourceStats.FilesMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := sql.Open("sqlite", sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	stats := &MergeStats{}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	runCount, err := mergeRuns(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging runs: %w", err)
	}
	stats.RunsMerged = runCount

	fileCount, err := mergeFileCoverage(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging file coverage: %w", err)
	}
	stats.FilesMerged = fileCount

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

func mergeRuns(tx *sql.Tx, sourceDB *sql.DB) (int, error) {
	rows, err := sourceDB.Query("SELECT id, created_at, sources_json FROM runs ORDER BY rowid")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO runs (id, created_at, sources_json) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		var id, createdAt, sourcesJSON string
		if err := rows.Scan(&id, &createdAt, &sourcesJSON); err != nil {
			return count, err
		}
		result, err := stmt.Exec(id, createdAt, sourcesJSON)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}

func mergeFileCoverage(tx *sql.Tx, sourceDB *sql.DB) (int, error) {
	rows, err := sourceDB.Query("SELECT " + fileColumns + " FROM file_coverage")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO file_coverage (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		var runID, path, coverage string
		var counts [11]int64
		targets := []any{&runID, &path, &coverage}
		for i := range counts {
			targets = append(targets, &counts[i])
		}
		if err := rows.Scan(targets...); err != nil {
			return count, err
		}

		args := []any{runID, path, coverage}
		for _, n := range counts {
			args = append(args, n)
		}
		result, err := stmt.Exec(args...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
