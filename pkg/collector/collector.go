// Package collector merges istanbul coverage maps and derives line counts and
// summaries from them.
package collector

import (
	"sort"
	"strconv"

	"github.com/praetorian-inc/covremap/pkg/types"
)

// Collector accumulates coverage maps. Records for the same path are merged
// additively.
type Collector struct {
	files map[string]*types.FileCoverage
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		files: make(map[string]*types.FileCoverage),
	}
}

// Add merges every file of cov into the collector.
// The collector keeps its own copies; cov is not retained.
func (c *Collector) Add(cov types.CoverageMap) {
	for _, path := range cov.Paths() {
		fc := cov[path]
		if fc == nil {
			continue
		}
		existing, ok := c.files[path]
		if !ok {
			clone := fc.Clone()
			clone.L = nil
			if clone.Path == "" {
				clone.Path = path
			}
			c.files[path] = clone
			continue
		}
		mergeFile(existing, fc)
	}
}

// Files returns the collected paths in sorted order.
func (c *Collector) Files() []string {
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// File returns a copy of the record for path with its line counts derived.
func (c *Collector) File(path string) (*types.FileCoverage, bool) {
	fc, ok := c.files[path]
	if !ok {
		return nil, false
	}
	out := fc.Clone()
	out.L = LineCounts(out)
	return out, true
}

// FinalCoverage returns a deep copy of everything collected, with derived
// line counts recomputed for every file.
func (c *Collector) FinalCoverage() types.CoverageMap {
	out := make(types.CoverageMap, len(c.files))
	for path, fc := range c.files {
		clone := fc.Clone()
		clone.L = LineCounts(clone)
		out[path] = clone
	}
	return out
}

// Len returns the number of collected files.
func (c *Collector) Len() int {
	return len(c.files)
}

// mergeFile adds the counters of src into dst. Entries only present in src are
// copied over.
func mergeFile(dst, src *types.FileCoverage) {
	dst.L = nil
	for k, loc := range src.StatementMap {
		if _, ok := dst.StatementMap[k]; !ok {
			dst.StatementMap[k] = loc
		}
	}
	for k, fn := range src.FnMap {
		if _, ok := dst.FnMap[k]; !ok {
			dst.FnMap[k] = fn
		}
	}
	for k, br := range src.BranchMap {
		if _, ok := dst.BranchMap[k]; !ok {
			locs := make([]types.Location, len(br.Locations))
			copy(locs, br.Locations)
			br.Locations = locs
			dst.BranchMap[k] = br
		}
	}
	for k, n := range src.S {
		dst.S[k] += n
	}
	for k, n := range src.F {
		dst.F[k] += n
	}
	for k, counts := range src.B {
		cur := dst.B[k]
		if len(cur) < len(counts) {
			grown := make([]int, len(counts))
			copy(grown, cur)
			cur = grown
		}
		for i, n := range counts {
			cur[i] += n
		}
		dst.B[k] = cur
	}
}

// LineCounts derives the per-line hit table from statements: each line takes
// the highest count of the statements starting on it.
func LineCounts(fc *types.FileCoverage) map[string]int {
	lines := make(map[string]int)
	for k, count := range fc.S {
		loc, ok := fc.StatementMap[k]
		if !ok {
			continue
		}
		if count == 0 && loc.Skip {
			count = 1
		}
		line := strconv.Itoa(loc.Start.Line)
		if prev, seen := lines[line]; !seen || prev < count {
			lines[line] = count
		}
	}
	return lines
}
