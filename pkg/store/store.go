package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// ErrRunNotFound is returned when a run ID is unknown or the store is empty.
var ErrRunNotFound = errors.New("run not found")

// Store persists remap runs.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (SQLite, PostgreSQL, memory).
type Store interface {
	// AddRun stores a run. An empty ID or zero CreatedAt is filled in.
	AddRun(run *types.Run) error

	// GetRun retrieves a run by ID.
	GetRun(id string) (*types.Run, error)

	// LatestRun retrieves the most recently created run.
	LatestRun() (*types.Run, error)

	// ListRuns lists every run, oldest first, with its total summary.
	ListRuns() ([]*types.RunInfo, error)

	// Close releases the underlying resources.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path or a postgres:// connection URL.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// New creates a Store for cfg.Path.
func New(cfg Config) (Store, error) {
	switch {
	case cfg.Path == "":
		return nil, fmt.Errorf("path is required")
	case cfg.Path == ":memory:":
		return NewMemory(), nil
	case IsPostgres(cfg.Path):
		return NewPostgres(context.Background(), cfg.Path)
	default:
		return NewSQLite(cfg.Path)
	}
}

// IsPostgres reports whether path is a PostgreSQL connection URL.
func IsPostgres(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}

// prepareRun assigns an ID and creation time to a run that lacks them.
func prepareRun(run *types.Run) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Coverage == nil {
		run.Coverage = types.CoverageMap{}
	}
	return nil
}

// summarizeRun computes the total summary of a run's coverage.
func summarizeRun(run *types.Run) *types.RunInfo {
	c := collector.New()
	c.Add(run.Coverage)
	return &types.RunInfo{
		ID:        run.ID,
		CreatedAt: run.CreatedAt,
		Files:     c.Len(),
		Summary:   c.TotalSummary(),
	}
}
