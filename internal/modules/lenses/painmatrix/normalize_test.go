package painmatrix

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

func TestNormalizeEvidenceMergesBothShapes(t *testing.T) {
	legacyID := uuid.New()
	facetID := uuid.New()
	ev := &fakeEvidence{
		legacy: []*types.Evidence{{
			ID:         legacyID,
			Verbatim:   "it crashes and it is slow",
			Confidence: "high",
			Pains:      datatypes.JSONSlice[string]{"Crashes", "  ", "slowness"},
		}},
		faceted: []repos.EvidenceFacetRow{
			{EvidenceID: facetID, Verbatim: "billing is opaque", Confidence: "low", KindSlug: types.FacetKindPain, Label: "Billing confusion"},
			{EvidenceID: facetID, Verbatim: "billing is opaque", KindSlug: types.FacetKindPain, Label: ""},
		},
	}
	out, err := NormalizeEvidence(context.Background(), NormalizeDeps{Log: logger.Nop(), Evidence: ev}, uuid.New())
	if err != nil {
		t.Fatalf("NormalizeEvidence: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("records=%d want 3: %+v", len(out), out)
	}
	if out[0].EvidenceID != legacyID || out[1].EvidenceID != legacyID {
		t.Fatalf("legacy records should share the parent evidence id")
	}
	if out[0].SourceFormat != SourceLegacy || out[2].SourceFormat != SourceFaceted {
		t.Fatalf("unexpected source formats: %s %s", out[0].SourceFormat, out[2].SourceFormat)
	}
	if out[2].PainLabel != "Billing confusion" {
		t.Fatalf("faceted label=%q", out[2].PainLabel)
	}
}

func TestNormalizeEvidenceEmptyIsNotAnError(t *testing.T) {
	out, err := NormalizeEvidence(context.Background(), NormalizeDeps{Log: logger.Nop(), Evidence: &fakeEvidence{}}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no records, got %d", len(out))
	}
}

func TestNormalizeEvidencePropagatesStoreErrors(t *testing.T) {
	for name, ev := range map[string]*fakeEvidence{
		"legacy":  {legacyErr: errBoom},
		"faceted": {facetErr: errBoom},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeEvidence(context.Background(), NormalizeDeps{Log: logger.Nop(), Evidence: ev}, uuid.New())
			if !errors.Is(err, errBoom) {
				t.Fatalf("err=%v want boom", err)
			}
		})
	}
}

func TestNormalizeEvidenceRequiresProject(t *testing.T) {
	_, err := NormalizeEvidence(context.Background(), NormalizeDeps{Log: logger.Nop(), Evidence: &fakeEvidence{}}, uuid.Nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
}

func TestLinkPeopleDedupes(t *testing.T) {
	e1, e2, e3 := uuid.New(), uuid.New(), uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	ev := &fakeEvidence{links: []*types.EvidencePerson{
		{EvidenceID: e1, PersonID: p1},
		{EvidenceID: e1, PersonID: p1},
		{EvidenceID: e1, PersonID: p2},
		{EvidenceID: e2, PersonID: p2},
	}}
	got, err := LinkPeople(context.Background(), LinkDeps{Log: logger.Nop(), Evidence: ev}, []uuid.UUID{e1, e2, e3})
	if err != nil {
		t.Fatalf("LinkPeople: %v", err)
	}
	if len(got[e1]) != 2 || len(got[e2]) != 1 {
		t.Fatalf("unexpected links: %v", got)
	}
	if _, ok := got[e3]; ok {
		t.Fatalf("unlinked evidence should be absent")
	}
}

func TestLinkPeopleSkipsQueryForNoEvidence(t *testing.T) {
	ev := &fakeEvidence{}
	got, err := LinkPeople(context.Background(), LinkDeps{Log: logger.Nop(), Evidence: ev}, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if ev.linkCalls.Load() != 0 {
		t.Fatalf("expected no query, got %d", ev.linkCalls.Load())
	}
}

func TestLinkPeopleErrorIsFatal(t *testing.T) {
	ev := &fakeEvidence{linkErr: errBoom}
	if _, err := LinkPeople(context.Background(), LinkDeps{Log: logger.Nop(), Evidence: ev}, []uuid.UUID{uuid.New()}); !errors.Is(err, errBoom) {
		t.Fatalf("err=%v want boom", err)
	}
}
