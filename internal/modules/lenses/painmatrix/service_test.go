package painmatrix

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/observability"
)

func newTestService(s *scenario, cache *fakeCache) (Service, *observability.Metrics) {
	deps := s.deps()
	deps.Metrics = observability.NewMetrics()
	return NewService(deps, cache), deps.Metrics
}

func TestServiceFreshCacheIsReused(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	svc, metrics := newTestService(s, cache)
	account := uuid.New()
	in := GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: account}

	first, err := svc.GeneratePainMatrix(context.Background(), in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.CacheMetadata != nil {
		t.Fatalf("computed matrix should not carry cache metadata")
	}
	if cache.upserts != 1 {
		t.Fatalf("upserts=%d want 1", cache.upserts)
	}
	row := cache.rows[s.projectID]
	if row.EvidenceCount != 5 || row.PainCount != 2 || row.UserGroupCount != 1 || row.AccountID != account {
		t.Fatalf("row=%+v", row)
	}

	legacyBefore := s.evidence.legacyCalls.Load()
	second, err := svc.GeneratePainMatrix(context.Background(), in)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if s.evidence.legacyCalls.Load() != legacyBefore {
		t.Fatalf("fresh cache must not recompute")
	}
	if second.CacheMetadata == nil || second.CacheMetadata.IsStale || second.CacheMetadata.EvidenceCountDelta != 0 {
		t.Fatalf("cache metadata=%+v", second.CacheMetadata)
	}
	if len(second.Cells) != len(first.Cells) || second.Insights != first.Insights {
		t.Fatalf("cached matrix differs from the computed one")
	}
	if metrics.CacheLookups("hit") != 1 || metrics.CacheLookups("miss") != 1 {
		t.Fatalf("hit=%v miss=%v", metrics.CacheLookups("hit"), metrics.CacheLookups("miss"))
	}
}

func TestServiceDriftTriggersRecompute(t *testing.T) {
	cases := []struct {
		name      string
		count     int64
		recompute bool
	}{
		{"unchanged", 100, false},
		{"under ten percent", 109, false},
		{"ten percent", 110, true},
		{"shrink", 90, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newScenario()
			s.evidence.setCount(100)
			cache := newFakeCache()
			svc, _ := newTestService(s, cache)
			in := GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: uuid.New()}
			if _, err := svc.GeneratePainMatrix(context.Background(), in); err != nil {
				t.Fatalf("seed: %v", err)
			}
			s.evidence.setCount(tc.count)
			before := s.evidence.legacyCalls.Load()
			m, err := svc.GeneratePainMatrix(context.Background(), in)
			if err != nil {
				t.Fatalf("second: %v", err)
			}
			recomputed := s.evidence.legacyCalls.Load() != before
			if recomputed != tc.recompute {
				t.Fatalf("recomputed=%v want %v", recomputed, tc.recompute)
			}
			if !tc.recompute && m.CacheMetadata.EvidenceCountDelta != int(tc.count-100) {
				t.Fatalf("delta=%d", m.CacheMetadata.EvidenceCountDelta)
			}
			if tc.recompute && cache.rows[s.projectID].EvidenceCount != int(tc.count) {
				t.Fatalf("recompute must refresh the stored count: %d", cache.rows[s.projectID].EvidenceCount)
			}
		})
	}
}

func TestServiceForceRefreshSkipsCacheRead(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	cache.getErr = errors.New("must not be read")
	svc, _ := newTestService(s, cache)
	m, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{
		Input:        Input{ProjectID: s.projectID},
		AccountID:    uuid.New(),
		ForceRefresh: true,
	})
	if err != nil {
		t.Fatalf("GeneratePainMatrix: %v", err)
	}
	if m.CacheMetadata != nil || cache.upserts != 1 {
		t.Fatalf("force refresh should compute and write through (upserts=%d)", cache.upserts)
	}
}

func TestServiceWithoutAccountSkipsWrite(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	svc, _ := newTestService(s, cache)
	m, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID}})
	if err != nil {
		t.Fatalf("GeneratePainMatrix: %v", err)
	}
	if m == nil || cache.upserts != 0 {
		t.Fatalf("expected a result and no cache write (upserts=%d)", cache.upserts)
	}
}

func TestServiceCacheFailuresAreNotFatal(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	cache.getErr = errBoom
	cache.putErr = errBoom
	svc, metrics := newTestService(s, cache)
	m, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: uuid.New()})
	if err != nil || m == nil {
		t.Fatalf("cache errors must not fail the build: %v", err)
	}
	if metrics.CacheLookups("error") != 1 {
		t.Fatalf("error lookups=%v", metrics.CacheLookups("error"))
	}
}

func TestServiceZeroCachedCountRecomputes(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	cache.rows[s.projectID] = &types.PainMatrixCache{
		ProjectID:     s.projectID,
		AccountID:     uuid.New(),
		MatrixData:    datatypes.JSON(`{"pain_themes":[],"user_groups":[],"cells":[],"params":{"min_evidence_per_pain":2,"min_group_size":2}}`),
		EvidenceCount: 0,
		UpdatedAt:     time.Now().UTC(),
	}
	svc, _ := newTestService(s, cache)
	m, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID}})
	if err != nil {
		t.Fatalf("GeneratePainMatrix: %v", err)
	}
	if m.CacheMetadata != nil || len(m.Cells) == 0 {
		t.Fatalf("an empty cached count must recompute")
	}
}

func TestServiceParamsMismatchRecomputes(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	svc, _ := newTestService(s, cache)
	account := uuid.New()
	if _, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: account}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := s.evidence.legacyCalls.Load()
	m, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID, MinEvidencePerPain: 3}, AccountID: account})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if s.evidence.legacyCalls.Load() == before || m.CacheMetadata != nil {
		t.Fatalf("different thresholds must not be served from cache")
	}
	if m.Params.MinEvidencePerPain != 3 {
		t.Fatalf("params=%+v", m.Params)
	}
}

func TestServiceCountErrorIsFatalOnCacheHit(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	svc, _ := newTestService(s, cache)
	in := GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: uuid.New()}
	if _, err := svc.GeneratePainMatrix(context.Background(), in); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s.evidence.countErr = errBoom
	if _, err := svc.GeneratePainMatrix(context.Background(), in); !errors.Is(err, errBoom) {
		t.Fatalf("err=%v want boom", err)
	}
}

func TestGetCachedPainMatrix(t *testing.T) {
	s := newScenario()
	cache := newFakeCache()
	svc, _ := newTestService(s, cache)

	m, err := svc.GetCachedPainMatrix(context.Background(), s.projectID)
	if err != nil || m != nil {
		t.Fatalf("no row: m=%v err=%v", m, err)
	}
	if _, err := svc.GeneratePainMatrix(context.Background(), GenerateInput{Input: Input{ProjectID: s.projectID}, AccountID: uuid.New()}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s.evidence.setCount(9)
	m, err = svc.GetCachedPainMatrix(context.Background(), s.projectID)
	if err != nil {
		t.Fatalf("GetCachedPainMatrix: %v", err)
	}
	if m.CacheMetadata == nil || !m.CacheMetadata.IsStale || m.CacheMetadata.EvidenceCountDelta != 4 {
		t.Fatalf("metadata=%+v", m.CacheMetadata)
	}
}

func TestDriftMetadata(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := &types.PainMatrixCache{EvidenceCount: 100, UpdatedAt: at}
	if meta := driftMetadata(row, 109, 0.10); meta.IsStale || meta.EvidenceCountDelta != 9 || !meta.CachedAt.Equal(at) {
		t.Fatalf("meta=%+v", meta)
	}
	if meta := driftMetadata(row, 90, 0.10); !meta.IsStale || meta.EvidenceCountDelta != -10 {
		t.Fatalf("meta=%+v", meta)
	}
	if meta := driftMetadata(&types.PainMatrixCache{}, 0, 0.10); !meta.IsStale {
		t.Fatalf("zero cached count must be stale")
	}
}
