package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadmatch/internal/config"
	"github.com/sells-group/leadmatch/internal/filter"
	"github.com/sells-group/leadmatch/internal/match"
	"github.com/sells-group/leadmatch/internal/model"
	"github.com/sells-group/leadmatch/internal/normalize"
	"github.com/sells-group/leadmatch/internal/pipeline"
	"github.com/sells-group/leadmatch/internal/tabular"
)

var (
	matchSource       string
	matchRegistry     string
	matchOut          string
	matchMinEmployees int64
	matchMaxEmployees int64
	matchMinRevenue   float64
	matchMaxRevenue   float64
	matchNACE         string
	matchPreset       string
	matchMethods      []string
	matchNoEnrich     bool
	matchWorkers      int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a CRM export against a registry extract",
	Long: `Matches every CRM company to at most one registry record, enriches the
matches with live employee and revenue figures, applies the filters and
writes the report.

Examples:
  # Construction companies with at least 10 employees, as Excel
  leadmatch match --source hubspot.csv --registry enheter.xlsx \
    --preset construction --min-employees 10 --out leads.xlsx

  # Name matches only, no API calls
  leadmatch match --source hubspot.csv --registry enheter.csv \
    --methods name_eq,name_no_legal_eq --no-enrich --out names.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := buildMatchRequest(cfg)
		if err != nil {
			return err
		}

		var enricher pipeline.Enricher
		if cfg.Enrich.Enabled && !matchNoEnrich {
			env, err := initFetcher(ctx, cfg, matchWorkers)
			if err != nil {
				return err
			}
			defer env.Close()
			enricher = env.Fetcher
		} else {
			req.SkipEnrichment = true
		}

		m := match.New(normalize.New(cfg.Match.LegalWords, cfg.Match.QualifierWords))
		res, err := pipeline.New(m, enricher).Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "match")
		}

		if res.Empty() {
			printZeroResults(os.Stdout, res)
			return nil
		}

		if err := writeReport(matchOut, res.Rows); err != nil {
			return err
		}
		printSummary(os.Stdout, res, matchOut)
		return nil
	},
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchSource, "source", "", "CRM export, .csv or .xlsx (required)")
	f.StringVar(&matchRegistry, "registry", "", "registry extract, .csv or .xlsx (required)")
	f.StringVar(&matchOut, "out", "matches.csv", "output file, .csv or .xlsx")
	f.Int64Var(&matchMinEmployees, "min-employees", 0, "minimum employees (0 = no bound)")
	f.Int64Var(&matchMaxEmployees, "max-employees", 0, "maximum employees (0 = no bound)")
	f.Float64Var(&matchMinRevenue, "min-revenue", 0, "minimum revenue in MNOK (0 = no bound)")
	f.Float64Var(&matchMaxRevenue, "max-revenue", 0, "maximum revenue in MNOK (0 = no bound)")
	f.StringVar(&matchNACE, "nace", "", "industry code prefixes, comma separated (e.g. 41,43.2)")
	f.StringVar(&matchPreset, "preset", "", "named industry preset (construction, retail)")
	f.StringSliceVar(&matchMethods, "methods", nil, "match methods to show (default from config, empty = all)")
	f.BoolVar(&matchNoEnrich, "no-enrich", false, "skip the registry API calls")
	f.IntVar(&matchWorkers, "workers", 0, "enrichment workers (default from config)")
	_ = matchCmd.MarkFlagRequired("source")
	_ = matchCmd.MarkFlagRequired("registry")

	rootCmd.AddCommand(matchCmd)
}

// buildMatchRequest loads both inputs and turns the flags into a request.
func buildMatchRequest(c *config.Config) (pipeline.Request, error) {
	var req pipeline.Request

	if err := checkOutputExt(matchOut); err != nil {
		return req, err
	}

	rows, err := tabular.LoadRows(matchSource)
	if err != nil {
		return req, eris.Wrap(err, "match: load source")
	}
	req.Sources, err = tabular.ParseSource(rows, c.Input.Source)
	if err != nil {
		return req, eris.Wrap(err, "match: parse source")
	}

	rows, err = tabular.LoadRows(matchRegistry)
	if err != nil {
		return req, eris.Wrap(err, "match: load registry")
	}
	req.Registry, err = tabular.ParseRegistry(rows, c.Input.Registry)
	if err != nil {
		return req, eris.Wrap(err, "match: parse registry")
	}

	req.Industry = filter.ParseIndustryPrefixes(matchNACE)
	if matchPreset != "" {
		p, err := filter.Preset(matchPreset)
		if err != nil {
			return req, err
		}
		req.Industry = append(req.Industry, p...)
	}

	names := matchMethods
	if len(names) == 0 {
		names = c.Match.Methods
	}
	req.Methods, err = parseMethods(names)
	if err != nil {
		return req, err
	}

	req.Bounds = filter.Bounds{
		MinEmployees: matchMinEmployees,
		MaxEmployees: matchMaxEmployees,
		MinRevenue:   filter.MNOKToNOK(matchMinRevenue),
		MaxRevenue:   filter.MNOKToNOK(matchMaxRevenue),
	}

	zap.L().Info("inputs loaded",
		zap.String("source", matchSource),
		zap.Int("source_records", len(req.Sources)),
		zap.String("registry", matchRegistry),
		zap.Int("registry_records", len(req.Registry)),
	)
	return req, nil
}

func parseMethods(names []string) ([]model.MatchMethod, error) {
	var out []model.MatchMethod
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m, err := model.ParseMatchMethod(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func checkOutputExt(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return nil
	default:
		return eris.Errorf("match: --out must end in .csv or .xlsx, got %q", path)
	}
}

// writeReport writes rows as CSV or XLSX depending on the extension.
func writeReport(path string, rows []model.ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "match: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = tabular.WriteXLSX(f, rows)
	} else {
		err = tabular.WriteCSV(f, rows)
	}
	if err != nil {
		return eris.Wrapf(err, "match: write %s", path)
	}
	return f.Close()
}

var zeroResultMessages = map[pipeline.EmptyStage]string{
	pipeline.StageNoMatches:               "No CRM company matched a registry record.",
	pipeline.StageNoRowsAfterMethodFilter: "Matches were found, but none used the selected match methods.",
	pipeline.StageNoRowsAfterFilters:      "Matches were found, but none passed the employee and revenue filters.",
}

func printZeroResults(out io.Writer, res *pipeline.Result) {
	_, _ = fmt.Fprintln(out, zeroResultMessages[res.EmptyStage])
	_, _ = fmt.Fprintf(out, "Run %s, stage %s. No file written.\n", truncateID(res.RunID), res.EmptyStage)
}

func printSummary(out io.Writer, res *pipeline.Result, path string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", truncateID(res.RunID))
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", res.Summary.Count)
	for _, m := range model.AllMethods {
		if n := res.MatchStats.Claimed[m]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", m.Label(), n)
		}
	}
	_, _ = fmt.Fprintf(w, "Avg employees:\t%s\n", formatAvg(res.Summary.AvgEmployees, "%.1f"))
	_, _ = fmt.Fprintf(w, "Avg revenue:\t%s\n", formatAvg(res.Summary.AvgRevenueMNOK, "%.1f MNOK"))
	if s := res.EnrichStats; s != nil {
		_, _ = fmt.Fprintf(w, "Lookups:\t%d dispatched, %d cached, %d failed\n", s.Dispatched, s.CacheHits, s.Failures)
	}
	if res.Cancelled {
		_, _ = fmt.Fprintln(w, "Cancelled:\tyes, figures are partial")
	}
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", res.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Written:\t%s\n", path)
	_ = w.Flush()
}

func formatAvg(v *float64, format string) string {
	if v == nil {
		return tabular.Unknown
	}
	return fmt.Sprintf(format, *v)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

