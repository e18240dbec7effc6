package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Name:      name,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

// EvidenceSeed describes one evidence row. Pains set means a legacy row; FacetLabels adds
// pain facets instead.
type EvidenceSeed struct {
	Verbatim         string
	Confidence       string
	WillingnessToPay string
	Pains            []string
	FacetLabels      []string
	CreatedAt        time.Time
}

func SeedEvidence(tb testing.TB, ctx context.Context, tx *gorm.DB, project *types.Project, seed EvidenceSeed) *types.Evidence {
	tb.Helper()
	e := &types.Evidence{
		ID:               uuid.New(),
		ProjectID:        project.ID,
		AccountID:        project.AccountID,
		Verbatim:         seed.Verbatim,
		Confidence:       seed.Confidence,
		WillingnessToPay: seed.WillingnessToPay,
		Pains:            seed.Pains,
		CreatedAt:        seed.CreatedAt,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed evidence: %v", err)
	}
	for _, label := range seed.FacetLabels {
		SeedFacet(tb, ctx, tx, e, types.FacetKindPain, label, nil)
	}
	return e
}

func SeedFacet(tb testing.TB, ctx context.Context, tx *gorm.DB, e *types.Evidence, kind, label string, embedding []byte) *types.EvidenceFacet {
	tb.Helper()
	f := &types.EvidenceFacet{
		ID:         uuid.New(),
		ProjectID:  e.ProjectID,
		EvidenceID: e.ID,
		KindSlug:   kind,
		Label:      label,
		Embedding:  embedding,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed facet: %v", err)
	}
	return f
}

func SeedPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, project *types.Project, name string) *types.Person {
	tb.Helper()
	p := &types.Person{ID: uuid.New(), ProjectID: project.ID, Name: name}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed person: %v", err)
	}
	return p
}

func LinkEvidencePerson(tb testing.TB, ctx context.Context, tx *gorm.DB, e *types.Evidence, p *types.Person) {
	tb.Helper()
	row := &types.EvidencePerson{EvidenceID: e.ID, PersonID: p.ID, ProjectID: e.ProjectID}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("link evidence person: %v", err)
	}
}

func SeedFacetAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, project *types.Project, kind, slug, label string) *types.FacetAccount {
	tb.Helper()
	f := &types.FacetAccount{ID: uuid.New(), AccountID: project.AccountID, KindSlug: kind, Slug: slug, Label: label}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed facet account: %v", err)
	}
	return f
}

func TagPerson(tb testing.TB, ctx context.Context, tx *gorm.DB, p *types.Person, f *types.FacetAccount) {
	tb.Helper()
	row := &types.PersonFacet{PersonID: p.ID, FacetAccountID: f.ID, ProjectID: p.ProjectID}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("tag person: %v", err)
	}
}
