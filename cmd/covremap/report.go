package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/praetorian-inc/covremap/pkg/collector"
	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/praetorian-inc/covremap/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	reportDatastore string
	reportRun       string
	reportInput     string
	reportList      bool
	reportColor     string
)

// Watermarks for coloring percentages.
const (
	lowWatermark  = 50
	highWatermark = 80
)

// styles holds color formatters for report output
type styles struct {
	heading *color.Color
	high    *color.Color
	medium  *color.Color
	low     *color.Color
}

// newStyles creates color formatters; enabled=false yields plain text.
func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		high:    color.New(color.FgGreen),
		medium:  color.New(color.FgYellow),
		low:     color.New(color.FgRed),
	}
	if !enabled {
		s.heading.DisableColor()
		s.high.DisableColor()
		s.medium.DisableColor()
		s.low.DisableColor()
	}
	return s
}

func (s *styles) pct(p float64) string {
	text := fmt.Sprintf("%.2f", p)
	switch {
	case p >= highWatermark:
		return s.high.Sprint(text)
	case p >= lowWatermark:
		return s.medium.Sprint(text)
	default:
		return s.low.Sprint(text)
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a coverage summary table",
	Long: `Print per-file coverage percentages for a remapped coverage document
or for a run saved in a datastore. Without --run the latest run is shown.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "", "SQLite path or postgres:// URL of saved runs")
	reportCmd.Flags().StringVar(&reportRun, "run", "", "Run ID to report (default latest)")
	reportCmd.Flags().StringVar(&reportInput, "input", "", "Remapped coverage JSON file to report")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "List saved runs instead of a single run")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
}

func runReport(cmd *cobra.Command, args []string) error {
	switch reportColor {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default: // "auto"
		if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		} else {
			color.NoColor = false
		}
	}
	s := newStyles(!color.NoColor)
	out := cmd.OutOrStdout()

	if reportInput != "" {
		cov, err := readCoverageFile(reportInput)
		if err != nil {
			return err
		}
		return renderCoverage(out, cov, s)
	}

	datastore := reportDatastore
	if datastore == "" {
		datastore = currentConfig().Datastore
	}
	if datastore == "" {
		return errors.New("one of --input or --datastore is required")
	}
	if datastore == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if !store.IsPostgres(datastore) {
		if _, err := os.Stat(datastore); err != nil {
			return fmt.Errorf("datastore not found: %s", datastore)
		}
	}

	st, err := store.New(store.Config{Path: datastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer st.Close()

	if reportList {
		runs, err := st.ListRuns()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		return renderRuns(out, runs, s)
	}

	var run *types.Run
	if reportRun != "" {
		run, err = st.GetRun(reportRun)
	} else {
		run, err = st.LatestRun()
	}
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}

	fmt.Fprintf(out, "%s %s (%s)\n", s.heading.Sprint("Run"), run.ID, run.CreatedAt.Format(time.RFC3339))
	return renderCoverage(out, run.Coverage, s)
}

// readCoverageFile decodes a coverage document written by remap.
func readCoverageFile(path string) (types.CoverageMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading coverage: %w", err)
	}
	var cov types.CoverageMap
	if err := json.Unmarshal(data, &cov); err != nil {
		return nil, fmt.Errorf("parsing coverage %s: %w", path, err)
	}
	return cov, nil
}

func renderCoverage(w io.Writer, cov types.CoverageMap, s *styles) error {
	c := collector.New()
	c.Add(cov)
	return renderSummary(w, newSummaryRows(c.Summaries(), c.TotalSummary()), s)
}

type summaryRow struct {
	name    string
	summary types.Summary
}

// newSummaryRows orders files by path and appends the total row.
func newSummaryRows(files map[string]types.Summary, total types.Summary) []summaryRow {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	rows := make([]summaryRow, 0, len(paths)+1)
	for _, path := range paths {
		rows = append(rows, summaryRow{name: path, summary: files[path]})
	}
	return append(rows, summaryRow{name: "All files", summary: total})
}

func renderSummary(w io.Writer, rows []summaryRow, s *styles) error {
	table := tablewriter.NewWriter(w)
	table.Header("File", "% Stmts", "% Branch", "% Funcs", "% Lines")
	for _, row := range rows {
		sum := row.summary
		if err := table.Append(
			row.name,
			s.pct(sum.Statements.Pct),
			s.pct(sum.Branches.Pct),
			s.pct(sum.Functions.Pct),
			s.pct(sum.Lines.Pct),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderRuns(w io.Writer, runs []*types.RunInfo, s *styles) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Created", "Files", "% Stmts", "% Lines")
	for _, run := range runs {
		if err := table.Append(
			run.ID,
			run.CreatedAt.Format(time.RFC3339),
			fmt.Sprint(run.Files),
			s.pct(run.Summary.Statements.Pct),
			s.pct(run.Summary.Lines.Pct),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
