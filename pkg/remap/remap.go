// Package remap translates istanbul coverage recorded against generated files
// into coverage of the original sources named by their source maps.
package remap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/sourcemap"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Config controls a remap invocation.
type Config struct {
	// Sources are coverage JSON documents, merged in order.
	Sources []string
	// ReadFile reads a generated file. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	// ReadJSON reads and decodes a JSON document. Defaults to sourcemap.ReadJSONFile.
	ReadJSON sourcemap.JSONReader
	// Warn receives non-fatal problems such as a missing source map.
	Warn func(error)
	// Exclude holds gitignore-style patterns of original sources to drop.
	Exclude []string
	Logger  *slog.Logger
}

// KindStats counts items of one kind.
type KindStats struct {
	Mapped   int `json:"mapped"`
	Dropped  int `json:"dropped"`
	Excluded int `json:"excluded"`
}

// Stats describes what a remap invocation did.
type Stats struct {
	FilesProcessed int       `json:"files_processed"`
	FilesSkipped   int       `json:"files_skipped"`
	Sources        int       `json:"sources"`
	Functions      KindStats `json:"functions"`
	Statements     KindStats `json:"statements"`
	Branches       KindStats `json:"branches"`
}

// Result is the outcome of Remap.
type Result struct {
	Coverage *collector.Collector
	Stats    Stats
}

// Remap merges the configured coverage documents and maps every function,
// statement and branch onto its original source.
func Remap(cfg Config) (*Result, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no coverage sources given")
	}
	cfg = withDefaults(cfg)

	generated := collector.New()
	for _, path := range cfg.Sources {
		var doc types.CoverageMap
		if err := cfg.ReadJSON(path, &doc); err != nil {
			return nil, fmt.Errorf("reading coverage %s: %w", path, err)
		}
		generated.Add(doc)
	}

	r := &remapper{
		resolver: sourcemap.NewResolver(cfg.ReadJSON),
		acc:      NewAccumulator(),
		exclude:  newExcluder(cfg.Exclude),
	}

	for _, path := range generated.Files() {
		fc, _ := generated.File(path)

		text, err := cfg.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading generated file %s: %w", path, err)
		}

		resolved, err := r.resolver.Resolve(path, text)
		if err != nil {
			if errors.Is(err, sourcemap.ErrNoSourceMap) {
				cfg.Warn(err)
				r.stats.FilesSkipped++
				continue
			}
			return nil, err
		}

		r.remapFile(fc, resolved)
		r.stats.FilesProcessed++
		cfg.Logger.Debug("remapped file", "path", path, "map", resolved.MapPath)
	}

	out := collector.New()
	out.Add(r.acc.Coverage())
	r.stats.Sources = out.Len()

	cfg.Logger.Debug("remap complete",
		"files", r.stats.FilesProcessed,
		"skipped", r.stats.FilesSkipped,
		"sources", r.stats.Sources,
		"functions", r.stats.Functions.Mapped,
		"statements", r.stats.Statements.Mapped,
		"branches", r.stats.Branches.Mapped,
	)

	return &Result{Coverage: out, Stats: r.stats}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.ReadFile == nil {
		cfg.ReadFile = os.ReadFile
	}
	if cfg.ReadJSON == nil {
		cfg.ReadJSON = sourcemap.ReadJSONFile
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Warn == nil {
		logger := cfg.Logger
		cfg.Warn = func(err error) {
			logger.Warn(err.Error())
		}
	}
	return cfg
}

type remapper struct {
	resolver *sourcemap.Resolver
	acc      *Accumulator
	exclude  *excluder
	stats    Stats
}

func (r *remapper) remapFile(fc *types.FileCoverage, resolved *sourcemap.Resolved) {
	consumer, baseDir := resolved.Consumer, resolved.BaseDir

	for _, idx := range types.SortedIndices(fc.FnMap) {
		fn := fc.FnMap[idx]
		m, ok := MapLocation(consumer, baseDir, fn.Loc)
		if !ok {
			r.stats.Functions.Dropped++
			continue
		}
		if r.exclude.Excluded(m.Source) {
			r.stats.Functions.Excluded++
			continue
		}
		r.acc.RecordFunction(m.Source, fn.Name, m.Loc, fc.F[idx])
		r.stats.Functions.Mapped++
	}

	for _, idx := range types.SortedIndices(fc.StatementMap) {
		m, ok := MapLocation(consumer, baseDir, fc.StatementMap[idx])
		if !ok {
			r.stats.Statements.Dropped++
			continue
		}
		if r.exclude.Excluded(m.Source) {
			r.stats.Statements.Excluded++
			continue
		}
		r.acc.RecordStatement(m.Source, m.Loc, fc.S[idx])
		r.stats.Statements.Mapped++
	}

	for _, idx := range types.SortedIndices(fc.BranchMap) {
		br := fc.BranchMap[idx]
		source, locs, ok := mapBranch(consumer, baseDir, br.Locations)
		if !ok {
			r.stats.Branches.Dropped++
			continue
		}
		if r.exclude.Excluded(source) {
			r.stats.Branches.Excluded++
			continue
		}
		r.acc.RecordBranch(source, br.Type, locs, fc.B[idx])
		r.stats.Branches.Mapped++
	}
}

// mapBranch maps every location of a branch. The branch is rejected as a
// whole if any location fails or lands in a different source than the first.
func mapBranch(consumer sourcemap.Consumer, baseDir string, locations []types.Location) (string, []types.Location, bool) {
	if len(locations) == 0 {
		return "", nil, false
	}
	var source string
	locs := make([]types.Location, 0, len(locations))
	for i, loc := range locations {
		m, ok := MapLocation(consumer, baseDir, loc)
		if !ok {
			return "", nil, false
		}
		if i == 0 {
			source = m.Source
		} else if m.Source != source {
			return "", nil, false
		}
		locs = append(locs, m.Loc)
	}
	return source, locs, true
}
