package sourcemap

import (
	"testing"
	"time"

	"github.com/praetorian-inc/covremap/pkg/sourcemap/sourcemaptest"
	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(line, column int) types.Position {
	return types.Position{Line: line, Column: column}
}

func TestParse_StandardMappings(t *testing.T) {
	// gen 1:0 -> 1:0, gen 1:5 -> 1:5, gen 2:0 -> 2:5
	data := []byte(`{"version":3,"file":"out.js","sources":["a.ts"],"names":[],"mappings":"AAAA,KAAK;AACA"}`)

	c, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, c.mappings, 3)

	got, ok := c.OriginalPositionFor(pos(1, 0), GreatestLowerBound)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Source: "a.ts", Line: 1, Column: 0}, got)

	got, ok = c.OriginalPositionFor(pos(1, 5), GreatestLowerBound)
	require.True(t, ok)
	assert.Equal(t, 5, got.Column)

	got, ok = c.OriginalPositionFor(pos(2, 0), GreatestLowerBound)
	require.True(t, ok)
	assert.Equal(t, 2, got.Line)
	assert.Equal(t, 5, got.Column)
}

func TestParse_SourceRoot(t *testing.T) {
	data := []byte(`{"version":3,"sourceRoot":"src","sources":["a.ts"],"names":[],"mappings":"AAAA"}`)
	c, err := Parse(data)
	require.NoError(t, err)

	got, ok := c.OriginalPositionFor(pos(1, 0), GreatestLowerBound)
	require.True(t, ok)
	assert.Equal(t, "src/a.ts", got.Source)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParse_UnsupportedVersion(t *testing.T) {
	_, err := Parse([]byte(`{"version":2,"sources":[],"mappings":""}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source map version")
}

func TestParse_MalformedMappings(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"source index out of range", `{"version":3,"sources":[],"names":[],"mappings":"AAAA"}`},
		{"name index out of range", `{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAAA"}`},
		{"truncated VLQ", `{"version":3,"sources":["a.ts"],"names":[],"mappings":"AACg"}`},
		{"truncated VLQ before separator", `{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAg;AAAA"}`},
		{"invalid character", `{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAA,!"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := Parse([]byte(tt.doc))
				done <- err
			}()

			select {
			case err := <-done:
				require.Error(t, err)
				assert.Contains(t, err.Error(), "decoding source map mappings")
			case <-time.After(5 * time.Second):
				t.Fatal("Parse did not return")
			}
		})
	}
}

func TestValidateMappings(t *testing.T) {
	assert.NoError(t, validateMappings(""))
	assert.NoError(t, validateMappings(";;AAAA,KAAK;AACA"))
	assert.NoError(t, validateMappings("AAAAA,gBAAgB"))
	assert.Error(t, validateMappings("AAAg"))
	assert.Error(t, validateMappings("AA=A"))
}

func TestOriginalPositionFor_Bias(t *testing.T) {
	data := sourcemaptest.Build("out.js",
		sourcemaptest.Segment{GenLine: 1, GenColumn: 0, Source: "a.ts", Line: 3, Column: 0},
		sourcemaptest.Segment{GenLine: 1, GenColumn: 10, Source: "a.ts", Line: 3, Column: 7},
		sourcemaptest.Segment{GenLine: 2, GenColumn: 4, Source: "a.ts", Line: 4, Column: 2},
	)
	c, err := Parse(data)
	require.NoError(t, err)

	tests := []struct {
		name     string
		at       types.Position
		bias     Bias
		wantOK   bool
		wantLine int
		wantCol  int
	}{
		{"exact glb", pos(1, 10), GreatestLowerBound, true, 3, 7},
		{"exact lub", pos(1, 10), LeastUpperBound, true, 3, 7},
		{"between glb", pos(1, 5), GreatestLowerBound, true, 3, 0},
		{"between lub", pos(1, 5), LeastUpperBound, true, 3, 7},
		{"after last on line glb", pos(1, 40), GreatestLowerBound, true, 3, 7},
		{"after last on line lub", pos(1, 40), LeastUpperBound, false, 0, 0},
		{"before first on line glb", pos(2, 1), GreatestLowerBound, false, 0, 0},
		{"before first on line lub", pos(2, 1), LeastUpperBound, true, 4, 2},
		{"unmapped line", pos(7, 0), GreatestLowerBound, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.OriginalPositionFor(tt.at, tt.bias)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, "a.ts", got.Source)
			assert.Equal(t, tt.wantLine, got.Line)
			assert.Equal(t, tt.wantCol, got.Column)
		})
	}
}

func TestOriginalPositionFor_Empty(t *testing.T) {
	c := &MapConsumer{}
	_, ok := c.OriginalPositionFor(pos(1, 0), GreatestLowerBound)
	assert.False(t, ok)
	_, ok = c.OriginalPositionFor(pos(1, 0), LeastUpperBound)
	assert.False(t, ok)
}
