package painmatrix

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

type fakeEvidence struct {
	mu      sync.Mutex
	legacy  []*types.Evidence
	faceted []repos.EvidenceFacetRow
	links   []*types.EvidencePerson
	count   int64

	legacyErr error
	facetErr  error
	linkErr   error
	countErr  error

	legacyCalls atomic.Int32
	linkCalls   atomic.Int32
	countCalls  atomic.Int32
}

func (f *fakeEvidence) ListWithLegacyPains(_ dbctx.Context, _ uuid.UUID) ([]*types.Evidence, error) {
	f.legacyCalls.Add(1)
	if f.legacyErr != nil {
		return nil, f.legacyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Evidence(nil), f.legacy...), nil
}

func (f *fakeEvidence) ListWithFacets(_ dbctx.Context, _ uuid.UUID, _ string) ([]repos.EvidenceFacetRow, error) {
	if f.facetErr != nil {
		return nil, f.facetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repos.EvidenceFacetRow(nil), f.faceted...), nil
}

func (f *fakeEvidence) CountByProject(_ dbctx.Context, _ uuid.UUID) (int64, error) {
	f.countCalls.Add(1)
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeEvidence) ListPeopleLinks(_ dbctx.Context, ids []uuid.UUID) ([]*types.EvidencePerson, error) {
	f.linkCalls.Add(1)
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.EvidencePerson
	for _, l := range f.links {
		if want[l.EvidenceID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeEvidence) setCount(n int64) {
	f.mu.Lock()
	f.count = n
	f.mu.Unlock()
}

type fakeFacets struct {
	embedded int64
	pairs    []repos.FacetClusterPair
	countErr error
	pairErr  error
}

func (f *fakeFacets) CountEmbedded(_ dbctx.Context, _ uuid.UUID, _ string) (int64, error) {
	return f.embedded, f.countErr
}

func (f *fakeFacets) FindClusters(_ dbctx.Context, _ uuid.UUID, _ string, _ float64) ([]repos.FacetClusterPair, error) {
	if f.pairErr != nil {
		return nil, f.pairErr
	}
	return f.pairs, nil
}

type fakeGroups struct {
	groups []types.UserGroup
	err    error
	last   repos.GroupQuery
}

func (f *fakeGroups) DeriveUserGroups(_ dbctx.Context, q repos.GroupQuery) ([]types.UserGroup, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

func (f *fakeGroups) SegmentKindSummaries(_ dbctx.Context, _ uuid.UUID) ([]types.SegmentKindSummary, error) {
	return nil, nil
}

type fakeCache struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*types.PainMatrixCache
	getErr  error
	putErr  error
	upserts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: map[uuid.UUID]*types.PainMatrixCache{}}
}

func (f *fakeCache) GetByProjectID(_ dbctx.Context, projectID uuid.UUID) (*types.PainMatrixCache, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[projectID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeCache) Upsert(_ dbctx.Context, row *types.PainMatrixCache) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[row.ProjectID] = &cp
	f.upserts++
	return nil
}

type fakeInsights struct {
	calls atomic.Int32
	err   error
	last  InsightInput
}

func (f *fakeInsights) GenerateInsights(_ context.Context, in InsightInput) (InsightResult, error) {
	f.calls.Add(1)
	f.last = in
	if f.err != nil {
		return InsightResult{}, f.err
	}
	return InsightResult{
		Summary:     "Slow load times hurt admins most.",
		Top3Actions: []string{"Profile the dashboard", "Add onboarding checklist", "Interview more admins"},
	}, nil
}

// scenario is five evidence items: "slow load times" x3 (high), "confusing onboarding" x2
// (medium), every item attributed to all three members of one "Admins" group.
type scenario struct {
	projectID uuid.UUID
	evidence  *fakeEvidence
	facets    *fakeFacets
	groups    *fakeGroups
	insights  *fakeInsights
	admins    []uuid.UUID
	slow      []uuid.UUID
	onboard   []uuid.UUID
}

func newScenario() *scenario {
	s := &scenario{
		projectID: uuid.New(),
		evidence:  &fakeEvidence{},
		facets:    &fakeFacets{},
		insights:  &fakeInsights{},
	}
	for i := 0; i < 3; i++ {
		s.admins = append(s.admins, uuid.New())
	}
	add := func(label, confidence, verbatim string) uuid.UUID {
		id := uuid.New()
		s.evidence.faceted = append(s.evidence.faceted, repos.EvidenceFacetRow{
			EvidenceID: id,
			Verbatim:   verbatim,
			Confidence: confidence,
			KindSlug:   types.FacetKindPain,
			Label:      label,
		})
		for _, p := range s.admins {
			s.evidence.links = append(s.evidence.links, &types.EvidencePerson{EvidenceID: id, PersonID: p})
		}
		return id
	}
	for _, v := range []string{"pages take forever", "the app is slow", "waiting on loads"} {
		s.slow = append(s.slow, add("Slow load times", "high", v))
	}
	for _, v := range []string{"I got lost", "setup was confusing"} {
		s.onboard = append(s.onboard, add("confusing onboarding", "medium", v))
	}
	s.evidence.count = 5
	s.groups = &fakeGroups{groups: []types.UserGroup{{
		ID:          "persona:admins",
		Name:        "Admins",
		KindSlug:    "persona",
		MemberIDs:   s.admins,
		MemberCount: len(s.admins),
	}}}
	return s
}

func (s *scenario) deps() Deps {
	cfg := DefaultConfig()
	cfg.MinEvidencePerPain = 2
	return Deps{
		Log:      logger.Nop(),
		Evidence: s.evidence,
		Facets:   s.facets,
		Groups:   s.groups,
		Insights: s.insights,
		Config:   cfg,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}
