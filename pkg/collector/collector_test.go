package collector

import (
	"testing"

	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(sl, sc, el, ec int) types.Location {
	return types.Location{
		Start: types.Position{Line: sl, Column: sc},
		End:   types.Position{Line: el, Column: ec},
	}
}

func sampleFile(path string, s1, s2, f1 int, b1 []int) *types.FileCoverage {
	fc := types.NewFileCoverage(path)
	fc.StatementMap["1"] = loc(1, 0, 1, 10)
	fc.StatementMap["2"] = loc(2, 0, 2, 10)
	fc.FnMap["1"] = types.FunctionMapping{Name: "run", Line: 1, Loc: loc(1, 0, 3, 1)}
	fc.BranchMap["1"] = types.BranchMapping{Line: 2, Type: "if", Locations: []types.Location{loc(2, 0, 2, 4), loc(2, 5, 2, 9)}}
	fc.S["1"] = s1
	fc.S["2"] = s2
	fc.F["1"] = f1
	fc.B["1"] = b1
	return fc
}

func TestCollector_AddSingle(t *testing.T) {
	c := New()
	c.Add(types.CoverageMap{"a.js": sampleFile("a.js", 1, 0, 1, []int{1, 0})})

	assert.Equal(t, []string{"a.js"}, c.Files())
	assert.Equal(t, 1, c.Len())

	fc, ok := c.File("a.js")
	require.True(t, ok)
	assert.Equal(t, 1, fc.S["1"])
	assert.Equal(t, map[string]int{"1": 1, "2": 0}, fc.L)
}

func TestCollector_AddMergesAdditively(t *testing.T) {
	c := New()
	c.Add(types.CoverageMap{"a.js": sampleFile("a.js", 1, 0, 1, []int{1, 0})})
	c.Add(types.CoverageMap{"a.js": sampleFile("a.js", 2, 3, 0, []int{0, 4})})

	fc, ok := c.File("a.js")
	require.True(t, ok)
	assert.Equal(t, 3, fc.S["1"])
	assert.Equal(t, 3, fc.S["2"])
	assert.Equal(t, 1, fc.F["1"])
	assert.Equal(t, []int{1, 4}, fc.B["1"])
	assert.Len(t, fc.StatementMap, 2)
}

func TestCollector_AddDoesNotRetainInput(t *testing.T) {
	in := sampleFile("a.js", 1, 0, 1, []int{1, 0})
	c := New()
	c.Add(types.CoverageMap{"a.js": in})

	in.S["1"] = 100
	in.B["1"][0] = 100

	fc, _ := c.File("a.js")
	assert.Equal(t, 1, fc.S["1"])
	assert.Equal(t, []int{1, 0}, fc.B["1"])
}

func TestCollector_AddUnionsNewEntries(t *testing.T) {
	first := types.NewFileCoverage("a.js")
	first.StatementMap["1"] = loc(1, 0, 1, 5)
	first.S["1"] = 1

	second := types.NewFileCoverage("a.js")
	second.StatementMap["2"] = loc(2, 0, 2, 5)
	second.S["2"] = 2

	c := New()
	c.Add(types.CoverageMap{"a.js": first})
	c.Add(types.CoverageMap{"a.js": second})

	fc, _ := c.File("a.js")
	assert.Equal(t, map[string]int{"1": 1, "2": 2}, fc.S)
	assert.Len(t, fc.StatementMap, 2)
}

func TestCollector_FillsMissingPath(t *testing.T) {
	c := New()
	c.Add(types.CoverageMap{"a.js": types.NewFileCoverage("")})
	fc, ok := c.File("a.js")
	require.True(t, ok)
	assert.Equal(t, "a.js", fc.Path)
}

func TestCollector_FinalCoverageLineCounts(t *testing.T) {
	fc := types.NewFileCoverage("a.js")
	fc.StatementMap["1"] = loc(5, 0, 5, 3)
	fc.StatementMap["2"] = loc(5, 4, 5, 9)
	fc.StatementMap["3"] = types.Location{Start: types.Position{Line: 6}, End: types.Position{Line: 6, Column: 2}, Skip: true}
	fc.S["1"] = 2
	fc.S["2"] = 7
	fc.S["3"] = 0

	c := New()
	c.Add(types.CoverageMap{"a.js": fc})

	final := c.FinalCoverage()
	require.Contains(t, final, "a.js")
	assert.Equal(t, map[string]int{"5": 7, "6": 1}, final["a.js"].L)
}

func TestCollector_FileMissing(t *testing.T) {
	c := New()
	_, ok := c.File("nope.js")
	assert.False(t, ok)
}
