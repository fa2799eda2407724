package types

import "fmt"

// Position is a line:column point in a source file.
// Line is 1-based, Column is 0-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location is a start-end range of source positions.
type Location struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
	Skip  bool     `json:"skip,omitempty"`
}

// Key returns the dedup key of the location for the given kind tag.
func (l Location) Key(kind string) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d", kind, l.Start.Line, l.Start.Column, l.End.Line, l.End.Column)
}

// Empty reports whether start and end are the same point.
func (l Location) Empty() bool {
	return l.Start == l.End
}
