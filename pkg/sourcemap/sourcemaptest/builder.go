// Package sourcemaptest builds source map fixtures for tests.
package sourcemaptest

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/neelance/sourcemap"
)

// Segment maps one generated position to an original position.
// Lines are 1-based, columns 0-based on both sides.
type Segment struct {
	GenLine   int
	GenColumn int
	Source    string
	Line      int
	Column    int
	Name      string
}

// Build encodes segments as a version 3 source map document.
func Build(file string, segments ...Segment) []byte {
	m := &sourcemap.Map{Version: 3, File: file}
	for _, s := range segments {
		m.AddMapping(&sourcemap.Mapping{
			GeneratedLine:   s.GenLine,
			GeneratedColumn: s.GenColumn,
			OriginalFile:    s.Source,
			OriginalLine:    s.Line,
			OriginalColumn:  s.Column,
			OriginalName:    s.Name,
		})
	}
	var buf bytes.Buffer
	if err := m.WriteTo(&buf); err != nil {
		panic(fmt.Sprintf("encoding source map: %v", err))
	}
	return buf.Bytes()
}

// InlineComment returns a sourceMappingURL comment embedding data as base64.
func InlineComment(data []byte) string {
	return "//# sourceMappingURL=data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data) + "\n"
}

// SidecarComment returns a sourceMappingURL comment pointing at name.
func SidecarComment(name string) string {
	return "//# sourceMappingURL=" + name + "\n"
}
