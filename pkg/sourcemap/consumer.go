// Package sourcemap resolves generated positions to original positions and
// locates the source map that belongs to a generated file.
package sourcemap

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/neelance/sourcemap"
	"github.com/praetorian-inc/covremap/pkg/types"
)

const (
	vlqAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	vlqContinuation = 32
)

// Bias selects which mapping wins when a position falls between two mappings.
type Bias int

const (
	// GreatestLowerBound picks the closest mapping at or before the position.
	GreatestLowerBound Bias = 1
	// LeastUpperBound picks the closest mapping at or after the position.
	LeastUpperBound Bias = 2
)

// OriginalPosition is a resolved position in an original source file.
// Source is empty when the matching mapping carries no source.
type OriginalPosition struct {
	Source string
	Line   int
	Column int
	Name   string
}

// Consumer resolves generated positions to original ones.
type Consumer interface {
	// OriginalPositionFor returns false when no mapping exists on the
	// generated line in the direction of the bias.
	OriginalPositionFor(pos types.Position, bias Bias) (OriginalPosition, bool)
}

// MapConsumer is a Consumer over a decoded source map.
type MapConsumer struct {
	mappings []*sourcemap.Mapping
	root     string
}

// Parse decodes a version 3 source map document.
func Parse(data []byte) (consumer *MapConsumer, err error) {
	m, err := sourcemap.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding source map: %w", err)
	}
	if m.Version != 0 && m.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", m.Version)
	}

	if err := validateMappings(m.Mappings); err != nil {
		return nil, fmt.Errorf("decoding source map mappings: %w", err)
	}

	// The decoder panics on out-of-range source and name indices.
	defer func() {
		if r := recover(); r != nil {
			consumer = nil
			err = fmt.Errorf("decoding source map mappings: %v", r)
		}
	}()

	mappings := append([]*sourcemap.Mapping(nil), m.DecodedMappings()...)
	sort.SliceStable(mappings, func(i, j int) bool {
		return compareGenerated(mappings[i], mappings[j].GeneratedLine, mappings[j].GeneratedColumn) < 0
	})

	return &MapConsumer{
		mappings: mappings,
		root:     m.SourceRoot,
	}, nil
}

// OriginalPositionFor implements Consumer. Only mappings on the same generated
// line are considered.
func (c *MapConsumer) OriginalPositionFor(pos types.Position, bias Bias) (OriginalPosition, bool) {
	n := len(c.mappings)
	i := sort.Search(n, func(i int) bool {
		return compareGenerated(c.mappings[i], pos.Line, pos.Column) >= 0
	})

	var match *sourcemap.Mapping
	switch {
	case i < n && compareGenerated(c.mappings[i], pos.Line, pos.Column) == 0:
		match = c.mappings[i]
	case bias == LeastUpperBound:
		if i < n {
			match = c.mappings[i]
		}
	default:
		if i > 0 {
			j := i - 1
			for j > 0 && compareGenerated(c.mappings[j-1], c.mappings[j].GeneratedLine, c.mappings[j].GeneratedColumn) == 0 {
				j--
			}
			match = c.mappings[j]
		}
	}

	if match == nil || match.GeneratedLine != pos.Line {
		return OriginalPosition{}, false
	}

	source := match.OriginalFile
	if source != "" && c.root != "" && !path.IsAbs(source) {
		source = path.Join(c.root, source)
	}
	return OriginalPosition{
		Source: source,
		Line:   match.OriginalLine,
		Column: match.OriginalColumn,
		Name:   match.OriginalName,
	}, true
}

// validateMappings rejects mappings the decoder cannot consume: bytes outside
// the base64 VLQ alphabet and segments ending inside a VLQ number.
func validateMappings(mappings string) error {
	last := -1
	for i := 0; i < len(mappings); i++ {
		c := mappings[i]
		if c == ',' || c == ';' {
			if last >= 0 && last&vlqContinuation != 0 {
				return fmt.Errorf("truncated VLQ value before offset %d", i)
			}
			last = -1
			continue
		}
		v := strings.IndexByte(vlqAlphabet, c)
		if v < 0 {
			return fmt.Errorf("invalid character %q at offset %d", c, i)
		}
		last = v
	}
	if last >= 0 && last&vlqContinuation != 0 {
		return errors.New("truncated VLQ value at end of mappings")
	}
	return nil
}

func compareGenerated(m *sourcemap.Mapping, line, column int) int {
	if m.GeneratedLine != line {
		return m.GeneratedLine - line
	}
	return m.GeneratedColumn - column
}
