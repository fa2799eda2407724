package collector

import (
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Summary computes the coverage summary of a collected file.
// The second return value is false when path was never collected.
func (c *Collector) Summary(path string) (types.Summary, bool) {
	fc, ok := c.files[path]
	if !ok {
		return types.NewSummary(), false
	}
	return Summarize(fc), true
}

// TotalSummary aggregates the summaries of every collected file.
func (c *Collector) TotalSummary() types.Summary {
	total := types.NewSummary()
	for _, path := range c.Files() {
		total.Add(Summarize(c.files[path]))
	}
	return total
}

// Summaries returns the summary of every collected file keyed by path.
func (c *Collector) Summaries() map[string]types.Summary {
	out := make(map[string]types.Summary, len(c.files))
	for path, fc := range c.files {
		out[path] = Summarize(fc)
	}
	return out
}

// Summarize computes line, statement, function and branch totals for one file.
func Summarize(fc *types.FileCoverage) types.Summary {
	lines := fc.L
	if lines == nil {
		lines = LineCounts(fc)
	}

	var s types.Summary

	for _, count := range lines {
		s.Lines.Total++
		if count > 0 {
			s.Lines.Covered++
		}
	}

	for k, count := range fc.S {
		s.Statements.Total++
		if count > 0 {
			s.Statements.Covered++
		}
		if fc.StatementMap[k].Skip {
			s.Statements.Skipped++
		}
	}

	for k, count := range fc.F {
		s.Functions.Total++
		if count > 0 {
			s.Functions.Covered++
		}
		if fc.FnMap[k].Skip {
			s.Functions.Skipped++
		}
	}

	for k, counts := range fc.B {
		locs := fc.BranchMap[k].Locations
		for i, count := range counts {
			s.Branches.Total++
			if count > 0 {
				s.Branches.Covered++
			}
			if i < len(locs) && locs[i].Skip {
				s.Branches.Skipped++
			}
		}
	}

	s.Lines.Pct = types.Percent(s.Lines.Covered, s.Lines.Total)
	s.Statements.Pct = types.Percent(s.Statements.Covered, s.Statements.Total)
	s.Functions.Pct = types.Percent(s.Functions.Covered, s.Functions.Total)
	s.Branches.Pct = types.Percent(s.Branches.Covered, s.Branches.Total)
	return s
}
