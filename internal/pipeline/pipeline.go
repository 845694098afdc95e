// Package pipeline wires matching, enrichment and filtering into one run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/leadmatch/internal/enrich"
	"github.com/sells-group/leadmatch/internal/filter"
	"github.com/sells-group/leadmatch/internal/match"
	"github.com/sells-group/leadmatch/internal/model"
)

// Enricher fetches live figures for a set of registry identifiers.
type Enricher interface {
	Fetch(ctx context.Context, ids []string) *enrich.Batch
}

// EmptyStage names the stage that left a run with no rows.
type EmptyStage string

const (
	StageNoMatches               EmptyStage = "no_matches"
	StageNoRowsAfterMethodFilter EmptyStage = "no_rows_after_method_filter"
	StageNoRowsAfterFilters      EmptyStage = "no_rows_after_filters"
)

// Request is the request-scoped input of one run.
type Request struct {
	Sources  []model.SourceRecord
	Registry []model.RegistryRecord
	// Industry restricts the registry before matching. Empty keeps all.
	Industry filter.IndustryPrefixes
	// Methods selects which match methods are shown. Empty shows all.
	Methods []model.MatchMethod
	Bounds  filter.Bounds
	// SkipEnrichment leaves every figure unknown without calling the APIs.
	SkipEnrichment bool
}

// Summary aggregates the final rows. Averages ignore unknown figures and
// are nil when no row has the figure.
type Summary struct {
	Count          int      `json:"count"`
	AvgEmployees   *float64 `json:"avg_employees,omitempty"`
	AvgRevenueMNOK *float64 `json:"avg_revenue_mnok,omitempty"`
}

// Result is the outcome of one run. A run with zero rows is not an error:
// EmptyStage says where the rows ran out.
type Result struct {
	RunID       string            `json:"run_id"`
	Rows        []model.ResultRow `json:"rows"`
	MatchStats  match.Stats       `json:"match_stats"`
	EnrichStats *enrich.Stats     `json:"enrich_stats,omitempty"`
	Cancelled   bool              `json:"cancelled"`
	EmptyStage  EmptyStage        `json:"empty_stage,omitempty"`
	Summary     Summary           `json:"summary"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// Empty reports whether the run produced no rows.
func (r *Result) Empty() bool { return r.EmptyStage != "" }

// Pipeline runs match, enrich, filter and sort.
type Pipeline struct {
	matcher  *match.Matcher
	enricher Enricher
}

// New creates a Pipeline. A nil enricher leaves every figure unknown.
func New(m *match.Matcher, e Enricher) *Pipeline {
	if m == nil {
		m = match.New(nil)
	}
	return &Pipeline{matcher: m, enricher: e}
}

// Run executes one request. It fails only on invalid bounds; cancellation
// during enrichment yields a partial result with Cancelled set.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Bounds.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID))
	defer func() { res.Elapsed = time.Since(start) }()

	if len(req.Sources) == 0 {
		res.EmptyStage = StageNoMatches
		log.Info("pipeline: zero results", zap.String("stage", string(res.EmptyStage)), zap.Int("sources", 0))
		return res, nil
	}

	registry := match.DedupeRegistry(req.Registry)
	registry = filter.FilterRegistry(registry, req.Industry)
	sources := match.DedupeSources(req.Sources)
	log.Info("pipeline: inputs ready",
		zap.Int("sources", len(sources)),
		zap.Int("registry", len(registry)),
		zap.Int("registry_before_industry_filter", len(req.Registry)),
		zap.Strings("industry", req.Industry),
	)

	mr := p.matcher.Match(sources, registry)
	res.MatchStats = mr.Stats
	if len(mr.Pairs) == 0 {
		res.EmptyStage = StageNoMatches
		log.Info("pipeline: zero results", zap.String("stage", string(res.EmptyStage)))
		return res, nil
	}

	pairs := match.FilterMethods(mr.Pairs, req.Methods)
	if len(pairs) == 0 {
		res.EmptyStage = StageNoRowsAfterMethodFilter
		log.Info("pipeline: zero results", zap.String("stage", string(res.EmptyStage)))
		return res, nil
	}

	rows := make([]model.ResultRow, len(pairs))
	ids := make([]string, 0, len(pairs))
	for i, pair := range pairs {
		rows[i] = model.ResultRow{Pair: pair, RegistryID: pair.RegistryID()}
		ids = append(ids, rows[i].RegistryID)
	}

	if !req.SkipEnrichment && p.enricher != nil {
		batch := p.enricher.Fetch(ctx, ids)
		stats := batch.Stats
		res.EnrichStats = &stats
		res.Cancelled = batch.Cancelled()
		for i := range rows {
			r := batch.Get(rows[i].RegistryID)
			rows[i].Employees = r.Employees
			rows[i].Revenue = r.Revenue
		}
	}

	rows = filter.Apply(rows, req.Bounds)
	if len(rows) == 0 {
		res.EmptyStage = StageNoRowsAfterFilters
		log.Info("pipeline: zero results", zap.String("stage", string(res.EmptyStage)))
		return res, nil
	}

	filter.SortByRevenue(rows)
	res.Rows = rows
	res.Summary = Summarize(rows)

	log.Info("pipeline: complete",
		zap.Int("rows", len(rows)),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Summarize counts rows and averages the known figures.
func Summarize(rows []model.ResultRow) Summary {
	s := Summary{Count: len(rows)}
	var empSum, revSum float64
	var empN, revN int
	for _, r := range rows {
		if r.Employees != nil {
			empSum += float64(*r.Employees)
			empN++
		}
		if r.Revenue != nil {
			revSum += filter.NOKToMNOK(*r.Revenue)
			revN++
		}
	}
	if empN > 0 {
		avg := empSum / float64(empN)
		s.AvgEmployees = &avg
	}
	if revN > 0 {
		avg := revSum / float64(revN)
		s.AvgRevenueMNOK = &avg
	}
	return s
}
