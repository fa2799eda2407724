package types

import "math"

// Totals counts covered items of one kind.
type Totals struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Skipped int     `json:"skipped"`
	Pct     float64 `json:"pct"`
}

// Summary aggregates coverage totals per kind.
type Summary struct {
	Lines      Totals `json:"lines"`
	Statements Totals `json:"statements"`
	Functions  Totals `json:"functions"`
	Branches   Totals `json:"branches"`
}

// Percent computes covered/total as a percentage truncated to two decimals.
// An empty total is reported as 100%.
func Percent(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	tmp := 1000*100*float64(covered)/float64(total) + 5
	return math.Floor(tmp/10) / 100
}

// Add accumulates other into t and recomputes the percentage.
func (t *Totals) Add(other Totals) {
	t.Total += other.Total
	t.Covered += other.Covered
	t.Skipped += other.Skipped
	t.Pct = Percent(t.Covered, t.Total)
}

// Add accumulates every kind of other into s.
func (s *Summary) Add(other Summary) {
	s.Lines.Add(other.Lines)
	s.Statements.Add(other.Statements)
	s.Functions.Add(other.Functions)
	s.Branches.Add(other.Branches)
}

// NewSummary returns a summary with every percentage at 100.
func NewSummary() Summary {
	empty := Totals{Pct: 100}
	return Summary{Lines: empty, Statements: empty, Functions: empty, Branches: empty}
}
