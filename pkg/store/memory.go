package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/praetorian-inc/covremap/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*types.Run
	order []string // insertion order
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*types.Run),
	}
}

// AddRun stores a copy of run.
func (m *MemoryStore) AddRun(run *types.Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	m.runs[run.ID] = cloneRun(run)
	m.order = append(m.order, run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (m *MemoryStore) GetRun(id string) (*types.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return cloneRun(run), nil
}

// LatestRun retrieves the run with the newest creation time. Ties go to the
// run added last.
func (m *MemoryStore) LatestRun() (*types.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *types.Run
	for _, id := range m.order {
		run := m.runs[id]
		if latest == nil || !run.CreatedAt.Before(latest.CreatedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, ErrRunNotFound
	}
	return cloneRun(latest), nil
}

// ListRuns lists every run, oldest first.
func (m *MemoryStore) ListRuns() ([]*types.RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*types.RunInfo, 0, len(m.order))
	for _, id := range m.order {
		infos = append(infos, summarizeRun(m.runs[id]))
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func cloneRun(run *types.Run) *types.Run {
	out := &types.Run{
		ID:        run.ID,
		CreatedAt: run.CreatedAt,
		Sources:   append([]string(nil), run.Sources...),
		Coverage:  make(types.CoverageMap, len(run.Coverage)),
	}
	for path, fc := range run.Coverage {
		if fc != nil {
			out.Coverage[path] = fc.Clone()
		}
	}
	return out
}
