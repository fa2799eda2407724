package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/praetorian-inc/covremap/pkg/lcov"
	"github.com/praetorian-inc/covremap/pkg/remap"
	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/spf13/cobra"
)

var (
	remapOutput    string
	remapFormat    string
	remapExclude   []string
	remapDatastore string
)

var remapCmd = &cobra.Command{
	Use:   "remap <coverage.json> [coverage.json...]",
	Short: "Remap coverage onto original sources",
	Long: `Read one or more istanbul coverage documents recorded against generated
JavaScript, resolve the source map of every covered file, and write the
coverage of the original sources.

Files without a source map reference are skipped with a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemap,
}

func init() {
	remapCmd.Flags().StringVarP(&remapOutput, "output", "o", "", "Output file (default stdout)")
	remapCmd.Flags().StringVar(&remapFormat, "format", "json", "Output format: json, lcov, summary")
	remapCmd.Flags().StringSliceVar(&remapExclude, "exclude", nil, "Gitignore-style pattern of original sources to drop (repeatable)")
	remapCmd.Flags().StringVar(&remapDatastore, "datastore", "", "Save the run to a SQLite path or postgres:// URL")
}

func runRemap(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	output := cfg.Output
	if cmd.Flags().Changed("output") {
		output = remapOutput
	}
	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format = remapFormat
	}
	datastore := cfg.Datastore
	if cmd.Flags().Changed("datastore") {
		datastore = remapDatastore
	}
	exclude := append(append([]string{}, cfg.Exclude...), remapExclude...)

	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := remap.Remap(remap.Config{
		Sources: args,
		Exclude: exclude,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("remap failed: %w", err)
	}

	if datastore != "" {
		id, err := saveRun(datastore, args, result.Coverage.FinalCoverage())
		if err != nil {
			return err
		}
		slog.Info("saved run", "id", id, "datastore", datastore)
	}

	out := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeCoverage(out, format, result); err != nil {
		return fmt.Errorf("writing %s output: %w", format, err)
	}

	slog.Info("remap complete",
		"files", result.Stats.FilesProcessed,
		"skipped", result.Stats.FilesSkipped,
		"sources", result.Stats.Sources,
	)
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "json", "lcov", "summary":
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeCoverage(w io.Writer, format string, result *remap.Result) error {
	switch format {
	case "lcov":
		return lcov.Write(w, result.Coverage.FinalCoverage())
	case "summary":
		rows := newSummaryRows(result.Coverage.Summaries(), result.Coverage.TotalSummary())
		return renderSummary(w, rows, newStyles(false))
	default:
		data, err := json.Marshal(result.Coverage.FinalCoverage())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

func saveRun(datastore string, sources []string, cov types.CoverageMap) (string, error) {
	s, err := store.New(store.Config{Path: datastore})
	if err != nil {
		return "", fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	run := &types.Run{Sources: sources, Coverage: cov}
	if err := s.AddRun(run); err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return run.ID, nil
}
