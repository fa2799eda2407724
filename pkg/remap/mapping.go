package remap

import (
	"path/filepath"

	"github.com/praetorian-inc/covremap/pkg/sourcemap"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Mapping is a generated range translated into an original source file.
type Mapping struct {
	Source string
	Loc    types.Location
}

// MapLocation resolves a generated location to its original source range.
// It returns false when either end has no mapping, has no source, or the
// two ends land in different sources.
func MapLocation(consumer sourcemap.Consumer, baseDir string, loc types.Location) (Mapping, bool) {
	start, ok := consumer.OriginalPositionFor(loc.Start, sourcemap.GreatestLowerBound)
	if !ok || start.Source == "" {
		return Mapping{}, false
	}
	end, ok := consumer.OriginalPositionFor(loc.End, sourcemap.GreatestLowerBound)
	if !ok || end.Source == "" {
		return Mapping{}, false
	}
	if start.Source != end.Source {
		return Mapping{}, false
	}

	mapped := types.Location{
		Start: types.Position{Line: start.Line, Column: start.Column},
		End:   types.Position{Line: end.Line, Column: end.Column},
	}

	// Point ranges widen to the next mapped position, exclusive.
	if mapped.Empty() {
		if next, ok := consumer.OriginalPositionFor(loc.End, sourcemap.LeastUpperBound); ok && next.Source != "" {
			mapped.End = types.Position{Line: next.Line, Column: next.Column - 1}
		}
	}

	return Mapping{
		Source: filepath.Join(baseDir, start.Source),
		Loc:    mapped,
	}, true
}
