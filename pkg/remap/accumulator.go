package remap

import (
	"strconv"
	"strings"

	"github.com/praetorian-inc/covremap/pkg/types"
)

// indexTable assigns dense per-kind indices to original locations of one
// source file. It lives and dies with its record.
type indexTable struct {
	indexes map[string]int
	last    map[string]int
}

func newIndexTable() *indexTable {
	return &indexTable{
		indexes: make(map[string]int),
		last:    map[string]int{types.KindFunction: 0, types.KindStatement: 0, types.KindBranch: 0},
	}
}

// lookup returns the index for key, allocating the next index for kind when
// the key is new.
func (t *indexTable) lookup(kind, key string) (string, bool) {
	if idx, ok := t.indexes[key]; ok {
		return types.Index(idx), false
	}
	t.last[kind]++
	idx := t.last[kind]
	t.indexes[key] = idx
	return types.Index(idx), true
}

type sourceRecord struct {
	coverage *types.FileCoverage
	table    *indexTable
}

// Accumulator collects remapped coverage per original source file.
type Accumulator struct {
	records map[string]*sourceRecord
	order   []string
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{records: make(map[string]*sourceRecord)}
}

// GetOrCreate returns the coverage record for source, creating it on first use.
func (a *Accumulator) GetOrCreate(source string) *types.FileCoverage {
	return a.record(source).coverage
}

func (a *Accumulator) record(source string) *sourceRecord {
	rec, ok := a.records[source]
	if !ok {
		rec = &sourceRecord{
			coverage: types.NewFileCoverage(source),
			table:    newIndexTable(),
		}
		a.records[source] = rec
		a.order = append(a.order, source)
	}
	return rec
}

// RecordFunction adds hits to the function at loc in source.
func (a *Accumulator) RecordFunction(source, name string, loc types.Location, hits int) {
	rec := a.record(source)
	idx, created := rec.table.lookup(types.KindFunction, loc.Key(types.KindFunction))
	if created {
		rec.coverage.FnMap[idx] = types.FunctionMapping{
			Name: name,
			Line: loc.Start.Line,
			Loc:  loc,
		}
		rec.coverage.F[idx] = 0
	}
	rec.coverage.F[idx] += hits
}

// RecordStatement adds hits to the statement at loc in source.
func (a *Accumulator) RecordStatement(source string, loc types.Location, hits int) {
	rec := a.record(source)
	idx, created := rec.table.lookup(types.KindStatement, loc.Key(types.KindStatement))
	if created {
		rec.coverage.StatementMap[idx] = loc
		rec.coverage.S[idx] = 0
	}
	rec.coverage.S[idx] += hits
}

// RecordBranch adds hits element-wise to the branch made of locs in source.
// All locations must already belong to source. Hits beyond len(locs) are
// ignored.
func (a *Accumulator) RecordBranch(source, typ string, locs []types.Location, hits []int) {
	if len(locs) == 0 {
		return
	}
	rec := a.record(source)
	idx, created := rec.table.lookup(types.KindBranch, branchKey(locs))
	if created {
		stored := make([]types.Location, len(locs))
		copy(stored, locs)
		rec.coverage.BranchMap[idx] = types.BranchMapping{
			Line:      locs[0].Start.Line,
			Type:      typ,
			Locations: stored,
		}
		rec.coverage.B[idx] = make([]int, len(locs))
	}
	counts := rec.coverage.B[idx]
	for i := 0; i < len(hits) && i < len(counts); i++ {
		counts[i] += hits[i]
	}
}

// Coverage returns the accumulated records. Sources returns their creation
// order.
func (a *Accumulator) Coverage() types.CoverageMap {
	out := make(types.CoverageMap, len(a.records))
	for source, rec := range a.records {
		out[source] = rec.coverage
	}
	return out
}

// Sources returns the original source paths in the order they were first seen.
func (a *Accumulator) Sources() []string {
	return append([]string(nil), a.order...)
}

// Len returns the number of original sources seen.
func (a *Accumulator) Len() int {
	return len(a.records)
}

func branchKey(locs []types.Location) string {
	var b strings.Builder
	b.WriteString(types.KindBranch)
	for _, l := range locs {
		for _, v := range []int{l.Start.Line, l.Start.Column, l.End.Line, l.End.Column} {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(v))
		}
	}
	return b.String()
}
