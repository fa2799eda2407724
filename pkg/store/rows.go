package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// fileRow is the stored form of one file of a run.
type fileRow struct {
	path     string
	coverage string
	summary  types.Summary
}

func fileRows(run *types.Run) ([]fileRow, error) {
	rows := make([]fileRow, 0, len(run.Coverage))
	for _, path := range run.Coverage.Paths() {
		fc := run.Coverage[path]
		if fc == nil {
			continue
		}
		data, err := json.Marshal(fc)
		if err != nil {
			return nil, fmt.Errorf("marshaling coverage of %s: %w", path, err)
		}
		derived := fc.Clone()
		derived.L = nil
		rows = append(rows, fileRow{
			path:     path,
			coverage: string(data),
			summary:  collector.Summarize(derived),
		})
	}
	return rows, nil
}

// args returns the values for fileColumns.
func (r fileRow) args(runID string) []any {
	s := r.summary
	return []any{
		runID, r.path, r.coverage,
		s.Lines.Total, s.Lines.Covered,
		s.Statements.Total, s.Statements.Covered, s.Statements.Skipped,
		s.Functions.Total, s.Functions.Covered, s.Functions.Skipped,
		s.Branches.Total, s.Branches.Covered, s.Branches.Skipped,
	}
}

// summaryTargets returns scan destinations matching summaryAggregate.
func summaryTargets(info *types.RunInfo) []any {
	s := &info.Summary
	return []any{
		&info.Files,
		&s.Lines.Total, &s.Lines.Covered,
		&s.Statements.Total, &s.Statements.Covered, &s.Statements.Skipped,
		&s.Functions.Total, &s.Functions.Covered, &s.Functions.Skipped,
		&s.Branches.Total, &s.Branches.Covered, &s.Branches.Skipped,
	}
}

func finishSummary(info *types.RunInfo) {
	s := &info.Summary
	for _, t := range []*types.Totals{&s.Lines, &s.Statements, &s.Functions, &s.Branches} {
		t.Pct = types.Percent(t.Covered, t.Total)
	}
}

func decodeFile(path, data string) (*types.FileCoverage, error) {
	var fc types.FileCoverage
	if err := json.Unmarshal([]byte(data), &fc); err != nil {
		return nil, fmt.Errorf("unmarshaling coverage of %s: %w", path, err)
	}
	return &fc, nil
}
