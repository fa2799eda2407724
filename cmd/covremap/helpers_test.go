package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/covremap/pkg/sourcemap/sourcemaptest"
	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/stretchr/testify/require"
)

// writeFixture writes a generated app.js with an inline source map onto app.ts
// and a coverage document with one covered and one uncovered statement.
// It returns the directory and the coverage path.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	generated := filepath.Join(dir, "app.js")
	mapData := sourcemaptest.Build("app.js",
		sourcemaptest.Segment{GenLine: 1, GenColumn: 0, Source: "app.ts", Line: 2, Column: 0},
		sourcemaptest.Segment{GenLine: 1, GenColumn: 12, Source: "app.ts", Line: 2, Column: 10},
		sourcemaptest.Segment{GenLine: 2, GenColumn: 0, Source: "app.ts", Line: 3, Column: 0},
		sourcemaptest.Segment{GenLine: 2, GenColumn: 8, Source: "app.ts", Line: 3, Column: 6},
	)
	body := "run();\nstop();\n" + sourcemaptest.InlineComment(mapData)
	require.NoError(t, os.WriteFile(generated, []byte(body), 0o644))

	fc := types.NewFileCoverage(generated)
	fc.StatementMap["1"] = types.Location{Start: types.Position{Line: 1, Column: 0}, End: types.Position{Line: 1, Column: 12}}
	fc.StatementMap["2"] = types.Location{Start: types.Position{Line: 2, Column: 0}, End: types.Position{Line: 2, Column: 8}}
	fc.S["1"] = 4
	fc.S["2"] = 0

	data, err := json.Marshal(types.CoverageMap{generated: fc})
	require.NoError(t, err)
	covPath := filepath.Join(dir, "coverage.json")
	require.NoError(t, os.WriteFile(covPath, data, 0o644))
	return dir, covPath
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
