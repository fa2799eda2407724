// Package covremap maps istanbul coverage collected against generated
// JavaScript back onto the original sources named by their source maps.
//
// # Basic Usage
//
// Remap one or more coverage documents and inspect the result:
//
//	result, err := covremap.Remap([]string{"coverage/coverage-final.json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, path := range result.Coverage.Files() {
//	    summary, _ := result.Coverage.Summary(path)
//	    fmt.Printf("%s: %.2f%% statements\n", path, summary.Statements.Pct)
//	}
//
// # Custom Readers
//
// File access can be redirected, for example to serve files from memory:
//
//	result, err := covremap.Remap(sources,
//	    covremap.WithReadFile(fsys.ReadFile),
//	    covremap.WithWarn(func(err error) { warnings = append(warnings, err) }),
//	)
package covremap

import (
	"log/slog"

	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/remap"
	"github.com/praetorian-inc/covremap/pkg/sourcemap"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/covremap" without subpackages.
type (
	// FileCoverage is the istanbul coverage record of one file.
	FileCoverage = types.FileCoverage

	// CoverageMap maps file paths to coverage records.
	CoverageMap = types.CoverageMap

	// Location is a start-end source range.
	Location = types.Location

	// Summary holds per-kind coverage totals.
	Summary = types.Summary

	// Collector holds remapped coverage and computes summaries.
	Collector = collector.Collector

	// Result is the outcome of a remap.
	Result = remap.Result

	// Stats counts what a remap did.
	Stats = remap.Stats

	// JSONReader reads and decodes a JSON document.
	JSONReader = sourcemap.JSONReader
)

// ErrNoSourceMap is passed to the warning sink for generated files without a
// source map reference.
var ErrNoSourceMap = sourcemap.ErrNoSourceMap

// Option configures a remap.
type Option func(*remap.Config)

// WithReadFile overrides how generated files are read.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(c *remap.Config) {
		c.ReadFile = fn
	}
}

// WithReadJSON overrides how coverage documents and source maps are read.
func WithReadJSON(fn JSONReader) Option {
	return func(c *remap.Config) {
		c.ReadJSON = fn
	}
}

// WithWarn sets the sink for non-fatal problems.
// Defaults to logging through the configured logger.
func WithWarn(fn func(error)) Option {
	return func(c *remap.Config) {
		c.Warn = fn
	}
}

// WithExclude drops original sources matching gitignore-style patterns.
func WithExclude(patterns ...string) Option {
	return func(c *remap.Config) {
		c.Exclude = append(c.Exclude, patterns...)
	}
}

// WithLogger sets the logger used for progress and default warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *remap.Config) {
		c.Logger = logger
	}
}

// Remap merges the coverage documents at sources and maps them onto original
// sources. Generated files without a source map are skipped with a warning;
// unreadable or malformed inputs abort with an error.
func Remap(sources []string, opts ...Option) (*Result, error) {
	cfg := remap.Config{Sources: sources}
	for _, opt := range opts {
		opt(&cfg)
	}
	return remap.Remap(cfg)
}
