package painmatrix

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	"github.com/yungbote/painlens-backend/internal/observability"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Deps struct {
	Log      *logger.Logger
	Evidence repos.EvidenceRepo
	Facets   repos.FacetRepo
	Groups   repos.UserGroupRepo
	Insights InsightGenerator
	Metrics  *observability.Metrics
	Config   Config
	Now      func() time.Time
}

// Input selects what to build. Zero thresholds fall back to Config.
type Input struct {
	ProjectID          uuid.UUID
	SegmentID          uuid.UUID
	SegmentKindSlug    string
	MinEvidencePerPain int
	MinGroupSize       int
}

func (d Deps) validate() error {
	if d.Log == nil || d.Evidence == nil || d.Groups == nil || d.Insights == nil {
		return ErrMissingDeps
	}
	return nil
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// resolveParams applies config defaults to the request thresholds.
func resolveParams(cfg Config, in Input) BuildParams {
	p := BuildParams{
		MinEvidencePerPain:  in.MinEvidencePerPain,
		MinGroupSize:        in.MinGroupSize,
		SegmentKindSlug:     in.SegmentKindSlug,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}
	if p.MinEvidencePerPain < 1 {
		p.MinEvidencePerPain = cfg.MinEvidencePerPain
	}
	if p.MinGroupSize < 1 {
		p.MinGroupSize = cfg.MinGroupSize
	}
	if in.SegmentID != uuid.Nil {
		p.SegmentID = in.SegmentID.String()
	}
	return p
}

// stage runs fn inside a span and records its duration. Errors come back as GenerationError.
func (d Deps) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "painmatrix."+name)
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	d.Metrics.ObserveMatrixStage(name, status, time.Since(start))
	observability.EndSpan(span, err)
	return fail(name, err)
}

// Generate builds a fresh matrix. Any store failure aborts the whole build.
func Generate(ctx context.Context, deps Deps, in Input) (*PainMatrix, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if in.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project_id", ErrInvalidInput)
	}
	cfg := deps.Config.normalized()
	params := resolveParams(cfg, in)
	log := deps.Log.With("project_id", in.ProjectID.String())

	ctx, span := observability.StartSpan(ctx, "painmatrix.generate",
		attribute.String("project_id", in.ProjectID.String()),
		attribute.Int("min_evidence_per_pain", params.MinEvidencePerPain),
		attribute.Int("min_group_size", params.MinGroupSize),
	)
	matrix, err := generate(ctx, deps, cfg, &params, in, log)
	observability.EndSpan(span, err)
	if err != nil {
		strategy := params.ClusteringStrategy
		if strategy == "" {
			strategy = "none"
		}
		deps.Metrics.IncMatrixBuild("error", strategy)
		return nil, err
	}
	deps.Metrics.IncMatrixBuild("ok", matrix.Params.ClusteringStrategy)
	return matrix, nil
}

func generate(ctx context.Context, deps Deps, cfg Config, params *BuildParams, in Input, log *logger.Logger) (*PainMatrix, error) {
	var (
		records []PainRecord
		groups  []UserGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.stage(gctx, "normalize", func(ctx context.Context) error {
			out, err := NormalizeEvidence(ctx, NormalizeDeps{Log: log, Evidence: deps.Evidence}, in.ProjectID)
			records = out
			return err
		})
	})
	g.Go(func() error {
		return deps.stage(gctx, "groups", func(ctx context.Context) error {
			out, err := deps.Groups.DeriveUserGroups(dbctx.Context{Ctx: ctx}, repos.GroupQuery{
				ProjectID:       in.ProjectID,
				SegmentID:       in.SegmentID,
				SegmentKindSlug: in.SegmentKindSlug,
				MinGroupSize:    params.MinGroupSize,
			})
			groups = out
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []UserGroup{}
	}

	if err := deps.stage(ctx, "people", func(ctx context.Context) error {
		links, err := LinkPeople(ctx, LinkDeps{Log: log, Evidence: deps.Evidence}, distinctEvidenceIDs(records))
		if err != nil {
			return err
		}
		records = attachPeople(records, links)
		return nil
	}); err != nil {
		return nil, err
	}

	var themes []PainTheme
	if err := deps.stage(ctx, "cluster", func(ctx context.Context) error {
		out, strategy, err := ClusterPains(ctx, ClusterDeps{Log: log, Facets: deps.Facets}, ClusterInput{
			ProjectID:           in.ProjectID,
			Records:             records,
			MinEvidencePerPain:  params.MinEvidencePerPain,
			SimilarityThreshold: cfg.SimilarityThreshold,
		})
		themes = out
		params.ClusteringStrategy = strategy
		return err
	}); err != nil {
		return nil, err
	}

	var cells []MatrixCell
	if err := deps.stage(ctx, "cells", func(ctx context.Context) error {
		out, err := buildCells(ctx, themes, groups, records, cfg)
		cells = out
		return err
	}); err != nil {
		return nil, err
	}

	kept, orphanEvidence := dropOrphanThemes(themes, cells, params.MinEvidencePerPain)
	if dropped := len(themes) - len(kept); dropped > 0 {
		log.Warn("dropped pain themes with no user group mapping",
			"themes", dropped,
			"orphaned_evidence", orphanEvidence,
		)
	}
	sortCells(cells)

	summary := Summary{
		TotalPains:    len(kept),
		TotalGroups:   len(groups),
		TotalEvidence: len(distinctEvidenceIDs(records)),
	}
	for _, c := range cells {
		if c.Metrics.ImpactScore >= cfg.HighImpactThreshold {
			summary.HighImpactCells++
		}
	}

	var insights string
	if err := deps.stage(ctx, "insights", func(ctx context.Context) error {
		out, err := generateInsights(ctx, deps, cfg, summary, cells, log)
		insights = out
		return err
	}); err != nil {
		return nil, err
	}

	log.Info("generated pain matrix",
		"pains", len(kept),
		"groups", len(groups),
		"cells", len(cells),
		"high_impact_cells", summary.HighImpactCells,
		"strategy", params.ClusteringStrategy,
	)
	return &PainMatrix{
		PainThemes:  kept,
		UserGroups:  groups,
		Cells:       cells,
		Summary:     summary,
		Insights:    insights,
		Params:      *params,
		GeneratedAt: deps.now(),
	}, nil
}

// buildCells scores every theme x group pair. Pairs are independent, so they run on a
// bounded pool and land in a pre-sized slice; output order does not depend on scheduling.
func buildCells(ctx context.Context, themes []PainTheme, groups []UserGroup, records []PainRecord, cfg Config) ([]MatrixCell, error) {
	if len(themes) == 0 || len(groups) == 0 {
		return []MatrixCell{}, nil
	}
	slots := make([]*MatrixCell, len(themes)*len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.CellWorkers)
	for ti := range themes {
		theme := themes[ti]
		themeRecords := recordsForTheme(theme, records)
		for gi := range groups {
			idx := ti*len(groups) + gi
			group := groups[gi]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if cell, ok := BuildMatrixCell(theme, group, themeRecords, cfg); ok {
					slots[idx] = &cell
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cells := make([]MatrixCell, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			cells = append(cells, *c)
		}
	}
	return cells, nil
}

func recordsForTheme(theme PainTheme, records []PainRecord) []PainRecord {
	ids := make(map[uuid.UUID]bool, len(theme.EvidenceIDs))
	for _, id := range theme.EvidenceIDs {
		ids[id] = true
	}
	out := make([]PainRecord, 0, len(theme.EvidenceIDs))
	for _, r := range records {
		if ids[r.EvidenceID] {
			out = append(out, r)
		}
	}
	return out
}

// dropOrphanThemes keeps themes referenced by at least one cell and meeting the evidence
// floor. It also reports how much evidence was left unmapped by the dropped themes.
func dropOrphanThemes(themes []PainTheme, cells []MatrixCell, minEvidence int) ([]PainTheme, int) {
	referenced := make(map[string]bool, len(themes))
	for _, c := range cells {
		referenced[c.PainThemeID] = true
	}
	kept := make([]PainTheme, 0, len(themes))
	orphaned := map[uuid.UUID]bool{}
	for _, t := range themes {
		if referenced[t.ID] && t.EvidenceCount >= minEvidence {
			kept = append(kept, t)
			continue
		}
		for _, id := range t.EvidenceIDs {
			orphaned[id] = true
		}
	}
	return kept, len(orphaned)
}

func sortCells(cells []MatrixCell) {
	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Metrics.ImpactScore != b.Metrics.ImpactScore {
			return a.Metrics.ImpactScore > b.Metrics.ImpactScore
		}
		if a.PainThemeID != b.PainThemeID {
			return a.PainThemeID < b.PainThemeID
		}
		return a.UserGroup.Name < b.UserGroup.Name
	})
}

// generateInsights skips the model for an empty matrix; there is nothing to narrate.
func generateInsights(ctx context.Context, deps Deps, cfg Config, summary Summary, cells []MatrixCell, log *logger.Logger) (string, error) {
	input := buildInsightInput(summary, cells, cfg.InsightTopCells)
	fallback := TemplateInsightGenerator{HighImpactThreshold: cfg.HighImpactThreshold}
	if len(cells) == 0 {
		res, _ := fallback.GenerateInsights(ctx, input)
		deps.Metrics.IncInsightCall("skipped")
		return formatInsights(res), nil
	}
	res, err := deps.Insights.GenerateInsights(ctx, input)
	if err != nil {
		deps.Metrics.IncInsightCall("error")
		if !cfg.DegradeInsightsOnError || ctx.Err() != nil {
			return "", fmt.Errorf("insight generation: %w", err)
		}
		log.Warn("insight generation failed; using template insights", "error", err)
		res, _ = fallback.GenerateInsights(ctx, input)
		return formatInsights(res), nil
	}
	deps.Metrics.IncInsightCall("ok")
	return formatInsights(res), nil
}
