package types

import (
	"sort"
	"strconv"
)

// Kind tags used in dedup keys.
const (
	KindFunction  = "f"
	KindStatement = "s"
	KindBranch    = "b"
)

// FunctionMapping describes an instrumented function.
type FunctionMapping struct {
	Name string   `json:"name"`
	Line int      `json:"line"`
	Loc  Location `json:"loc"`
	Skip bool     `json:"skip,omitempty"`
}

// BranchMapping describes an instrumented branch and its alternatives.
type BranchMapping struct {
	Line      int        `json:"line"`
	Type      string     `json:"type"`
	Locations []Location `json:"locations"`
}

// FileCoverage is the istanbul coverage record for a single file.
// Map keys are decimal indices, as they appear in the JSON document.
type FileCoverage struct {
	Path         string                     `json:"path"`
	StatementMap map[string]Location        `json:"statementMap"`
	FnMap        map[string]FunctionMapping `json:"fnMap"`
	BranchMap    map[string]BranchMapping   `json:"branchMap"`
	S            map[string]int             `json:"s"`
	F            map[string]int             `json:"f"`
	B            map[string][]int           `json:"b"`
	L            map[string]int             `json:"l,omitempty"`
}

// NewFileCoverage returns an empty record for path.
func NewFileCoverage(path string) *FileCoverage {
	return &FileCoverage{
		Path:         path,
		StatementMap: make(map[string]Location),
		FnMap:        make(map[string]FunctionMapping),
		BranchMap:    make(map[string]BranchMapping),
		S:            make(map[string]int),
		F:            make(map[string]int),
		B:            make(map[string][]int),
	}
}

// Clone returns a deep copy of the record.
func (fc *FileCoverage) Clone() *FileCoverage {
	out := NewFileCoverage(fc.Path)
	for k, v := range fc.StatementMap {
		out.StatementMap[k] = v
	}
	for k, v := range fc.FnMap {
		out.FnMap[k] = v
	}
	for k, v := range fc.BranchMap {
		locs := make([]Location, len(v.Locations))
		copy(locs, v.Locations)
		v.Locations = locs
		out.BranchMap[k] = v
	}
	for k, v := range fc.S {
		out.S[k] = v
	}
	for k, v := range fc.F {
		out.F[k] = v
	}
	for k, v := range fc.B {
		counts := make([]int, len(v))
		copy(counts, v)
		out.B[k] = counts
	}
	if fc.L != nil {
		out.L = make(map[string]int, len(fc.L))
		for k, v := range fc.L {
			out.L[k] = v
		}
	}
	return out
}

// CoverageMap maps file paths to their coverage records.
type CoverageMap map[string]*FileCoverage

// Paths returns the file paths in sorted order.
func (m CoverageMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Index formats a 1-based index as a map key.
func Index(i int) string {
	return strconv.Itoa(i)
}

// SortedIndices returns the keys of an index map in ascending numeric order.
// Keys that are not integers sort after numeric ones, lexically.
func SortedIndices[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
