package painmatrix

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

// sourceRow is either a legacy evidence row (Labels = its pains array) or one faceted
// evidence/facet join row (Labels = the single facet label).
type sourceRow struct {
	Format           SourceFormat
	EvidenceID       uuid.UUID
	Verbatim         string
	Confidence       string
	WillingnessToPay string
	Labels           []string
}

func legacyRow(ev *types.Evidence) sourceRow {
	return sourceRow{
		Format:           SourceLegacy,
		EvidenceID:       ev.ID,
		Verbatim:         ev.Verbatim,
		Confidence:       ev.Confidence,
		WillingnessToPay: ev.WillingnessToPay,
		Labels:           []string(ev.Pains),
	}
}

func facetedRow(row repos.EvidenceFacetRow) sourceRow {
	return sourceRow{
		Format:           SourceFaceted,
		EvidenceID:       row.EvidenceID,
		Verbatim:         row.Verbatim,
		Confidence:       row.Confidence,
		WillingnessToPay: row.WillingnessToPay,
		Labels:           []string{row.Label},
	}
}

func (r sourceRow) records() []PainRecord {
	out := make([]PainRecord, 0, len(r.Labels))
	for _, label := range r.Labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		out = append(out, PainRecord{
			EvidenceID:       r.EvidenceID,
			Verbatim:         r.Verbatim,
			Confidence:       strings.TrimSpace(r.Confidence),
			WillingnessToPay: strings.TrimSpace(r.WillingnessToPay),
			PainLabel:        label,
			SourceFormat:     r.Format,
		})
	}
	return out
}

type NormalizeDeps struct {
	Log      *logger.Logger
	Evidence repos.EvidenceRepo
}

// NormalizeEvidence merges legacy pains arrays and pain facets into one record list.
// Both queries run concurrently; either failing fails the call.
func NormalizeEvidence(ctx context.Context, deps NormalizeDeps, projectID uuid.UUID) ([]PainRecord, error) {
	if deps.Evidence == nil || deps.Log == nil {
		return nil, ErrMissingDeps
	}
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project_id", ErrInvalidInput)
	}

	var (
		legacy  []*types.Evidence
		faceted []repos.EvidenceFacetRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := deps.Evidence.ListWithLegacyPains(dbctx.Context{Ctx: gctx}, projectID)
		if err != nil {
			return fmt.Errorf("legacy pains: %w", err)
		}
		legacy = rows
		return nil
	})
	g.Go(func() error {
		rows, err := deps.Evidence.ListWithFacets(dbctx.Context{Ctx: gctx}, projectID, types.FacetKindPain)
		if err != nil {
			return fmt.Errorf("pain facets: %w", err)
		}
		faceted = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]PainRecord, 0, len(legacy)+len(faceted))
	legacyCount := 0
	for _, ev := range legacy {
		if ev == nil {
			continue
		}
		recs := legacyRow(ev).records()
		legacyCount += len(recs)
		out = append(out, recs...)
	}
	for _, row := range faceted {
		if row.KindSlug != "" && row.KindSlug != types.FacetKindPain {
			continue
		}
		out = append(out, facetedRow(row).records()...)
	}

	deps.Log.Info("normalized pain evidence",
		"project_id", projectID.String(),
		"records", len(out),
		"legacy_records", legacyCount,
		"faceted_records", len(out)-legacyCount,
	)
	return out, nil
}

// distinctEvidenceIDs returns evidence ids in first-seen order.
func distinctEvidenceIDs(records []PainRecord) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(records))
	out := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		if seen[r.EvidenceID] {
			continue
		}
		seen[r.EvidenceID] = true
		out = append(out, r.EvidenceID)
	}
	return out
}
