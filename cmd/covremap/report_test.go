package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReportCmd creates a fresh report command for testing
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "report",
		RunE: runReport,
	}
	cmd.Flags().StringVar(&reportDatastore, "datastore", "", "Datastore")
	cmd.Flags().StringVar(&reportRun, "run", "", "Run ID")
	cmd.Flags().StringVar(&reportInput, "input", "", "Coverage file")
	cmd.Flags().BoolVar(&reportList, "list", false, "List runs")
	cmd.Flags().StringVar(&reportColor, "color", "never", "Color output: auto, always, never")
	return cmd
}

func executeReport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newReportCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func statementCoverage(path string, counts ...int) types.CoverageMap {
	fc := types.NewFileCoverage(path)
	for i, count := range counts {
		idx := types.Index(i + 1)
		fc.StatementMap[idx] = types.Location{
			Start: types.Position{Line: i + 1, Column: 0},
			End:   types.Position{Line: i + 1, Column: 5},
		}
		fc.S[idx] = count
	}
	return types.CoverageMap{path: fc}
}

func seedStore(t *testing.T, runs ...*types.Run) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	for _, run := range runs {
		require.NoError(t, s.AddRun(run))
	}
	require.NoError(t, s.Close())
	return dbPath
}

func TestReportCmd_Input(t *testing.T) {
	dir, covPath := writeFixture(t)
	outPath := filepath.Join(dir, "remapped.json")
	_, err := executeRemap(t, covPath, "-o", outPath)
	require.NoError(t, err)

	out, err := executeReport(t, "--input", outPath)
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(dir, "app.ts"))
	assert.Contains(t, out, "All files")
	assert.Contains(t, out, "50.00")
	assert.NotContains(t, out, "\x1b[")
}

func TestReportCmd_LatestRun(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dbPath := seedStore(t,
		&types.Run{ID: "old", CreatedAt: base, Coverage: statementCoverage("src/old.ts", 1)},
		&types.Run{ID: "new", CreatedAt: base.Add(time.Hour), Coverage: statementCoverage("src/new.ts", 1, 0, 0)},
	)

	out, err := executeReport(t, "--datastore", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Run new")
	assert.Contains(t, out, "src/new.ts")
	assert.NotContains(t, out, "src/old.ts")
	assert.Contains(t, out, "33.33")
}

func TestReportCmd_RunByID(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dbPath := seedStore(t,
		&types.Run{ID: "old", CreatedAt: base, Coverage: statementCoverage("src/old.ts", 1)},
		&types.Run{ID: "new", CreatedAt: base.Add(time.Hour), Coverage: statementCoverage("src/new.ts", 0)},
	)

	out, err := executeReport(t, "--datastore", dbPath, "--run", "old")
	require.NoError(t, err)
	assert.Contains(t, out, "Run old")
	assert.Contains(t, out, "src/old.ts")

	_, err = executeReport(t, "--datastore", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestReportCmd_List(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dbPath := seedStore(t,
		&types.Run{ID: "first", CreatedAt: base, Coverage: statementCoverage("a.ts", 1, 1)},
		&types.Run{ID: "second", CreatedAt: base.Add(time.Minute), Coverage: statementCoverage("b.ts", 1, 0)},
	)

	out, err := executeReport(t, "--datastore", dbPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "2024-05-01T12:01:00Z")
	assert.Less(t, bytes.Index([]byte(out), []byte("first")), bytes.Index([]byte(out), []byte("second")))
}

func TestReportCmd_ListEmpty(t *testing.T) {
	dbPath := seedStore(t)

	out, err := executeReport(t, "--datastore", dbPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found.")
}

func TestReportCmd_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		_, err := executeReport(t)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--input or --datastore")
	})
	t.Run("memory store", func(t *testing.T) {
		_, err := executeReport(t, "--datastore", ":memory:")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "in-memory")
	})
	t.Run("missing datastore", func(t *testing.T) {
		_, err := executeReport(t, "--datastore", filepath.Join(t.TempDir(), "nope.db"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "datastore not found")
	})
	t.Run("empty datastore", func(t *testing.T) {
		_, err := executeReport(t, "--datastore", seedStore(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestReportCmd_InputErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := executeReport(t, "--input", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading coverage")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = executeReport(t, "--input", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing coverage")
}

func TestStyles_Watermarks(t *testing.T) {
	s := newStyles(false)
	assert.Equal(t, "80.00", s.pct(80))
	assert.Equal(t, "49.99", s.pct(49.99))

	colored := newStyles(true)
	colored.high.EnableColor()
	colored.low.EnableColor()
	assert.Contains(t, colored.high.Sprint("x"), "\x1b[32m")
	assert.Contains(t, colored.low.Sprint("x"), "\x1b[31m")
}

func TestNewSummaryRows(t *testing.T) {
	files := map[string]types.Summary{
		"b.ts": types.NewSummary(),
		"a.ts": types.NewSummary(),
	}
	rows := newSummaryRows(files, types.NewSummary())

	require.Len(t, rows, 3)
	assert.Equal(t, "a.ts", rows[0].name)
	assert.Equal(t, "b.ts", rows[1].name)
	assert.Equal(t, "All files", rows[2].name)
}
