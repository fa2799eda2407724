package remap

import (
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// excluder drops original sources matching gitignore-style patterns.
type excluder struct {
	matcher *gitignore.GitIgnore
}

func newExcluder(patterns []string) *excluder {
	if len(patterns) == 0 {
		return &excluder{}
	}
	return &excluder{matcher: gitignore.CompileIgnoreLines(patterns...)}
}

func (e *excluder) Excluded(source string) bool {
	if e == nil || e.matcher == nil {
		return false
	}
	return e.matcher.MatchesPath(filepath.ToSlash(source))
}
