package painmatrix

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
)

type GenerateInput struct {
	Input
	// AccountID attributes the cache row. Without it the result is returned but not cached.
	AccountID    uuid.UUID
	ForceRefresh bool
}

type Service interface {
	GeneratePainMatrix(ctx context.Context, in GenerateInput) (*PainMatrix, error)
	// GetCachedPainMatrix returns the cached matrix annotated with drift, or nil when none exists.
	GetCachedPainMatrix(ctx context.Context, projectID uuid.UUID) (*PainMatrix, error)
}

type service struct {
	deps  Deps
	cache repos.PainMatrixCacheRepo
}

func NewService(deps Deps, cache repos.PainMatrixCacheRepo) Service {
	return &service{deps: deps, cache: cache}
}

func (s *service) GeneratePainMatrix(ctx context.Context, in GenerateInput) (*PainMatrix, error) {
	if err := s.deps.validate(); err != nil {
		return nil, err
	}
	if in.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project_id", ErrInvalidInput)
	}
	cfg := s.deps.Config.normalized()
	params := resolveParams(cfg, in.Input)
	log := s.deps.Log.With("project_id", in.ProjectID.String())

	currentCount := int64(-1)
	switch {
	case in.ForceRefresh || s.cache == nil:
		s.deps.Metrics.IncCacheLookup("bypass")
	default:
		cached, count, err := s.lookup(ctx, in.ProjectID, params, cfg)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
		currentCount = count
	}

	if currentCount < 0 && s.cache != nil && in.AccountID != uuid.Nil {
		n, err := s.deps.Evidence.CountByProject(dbctx.Context{Ctx: ctx}, in.ProjectID)
		if err != nil {
			log.Warn("evidence count failed; result will not be cached", "error", err)
		} else {
			currentCount = n
		}
	}

	matrix, err := Generate(ctx, s.deps, in.Input)
	if err != nil {
		return nil, err
	}
	s.store(ctx, in, matrix, currentCount)
	return matrix, nil
}

// lookup returns a fresh cached matrix, or nil plus the current evidence count when the
// caller must recompute. Only the evidence count query can fail it.
func (s *service) lookup(ctx context.Context, projectID uuid.UUID, params BuildParams, cfg Config) (*PainMatrix, int64, error) {
	log := s.deps.Log.With("project_id", projectID.String())
	row, err := s.cache.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		s.deps.Metrics.IncCacheLookup("error")
		log.Warn("pain matrix cache read failed; recomputing", "error", err)
		return nil, -1, nil
	}
	if row == nil {
		s.deps.Metrics.IncCacheLookup("miss")
		return nil, -1, nil
	}

	current, err := s.deps.Evidence.CountByProject(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, -1, fail("evidence_count", err)
	}

	matrix, err := decodeCacheRow(row)
	if err != nil {
		s.deps.Metrics.IncCacheLookup("error")
		log.Warn("pain matrix cache row unreadable; recomputing", "error", err)
		return nil, current, nil
	}
	if !matrix.Params.sameSelection(params) {
		s.deps.Metrics.IncCacheLookup("miss")
		log.Debug("cached pain matrix built with different params; recomputing")
		return nil, current, nil
	}

	meta := driftMetadata(row, current, cfg.StaleDeltaRatio)
	if meta.IsStale {
		s.deps.Metrics.IncCacheLookup("stale")
		log.Info("cached pain matrix is stale; recomputing",
			"cached_evidence", row.EvidenceCount,
			"current_evidence", current,
		)
		return nil, current, nil
	}
	s.deps.Metrics.IncCacheLookup("hit")
	matrix.CacheMetadata = &meta
	return matrix, current, nil
}

func (s *service) GetCachedPainMatrix(ctx context.Context, projectID uuid.UUID) (*PainMatrix, error) {
	if s.cache == nil || s.deps.Evidence == nil || s.deps.Log == nil {
		return nil, ErrMissingDeps
	}
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project_id", ErrInvalidInput)
	}
	row, err := s.cache.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, fail("cache_read", err)
	}
	if row == nil {
		return nil, nil
	}
	matrix, err := decodeCacheRow(row)
	if err != nil {
		return nil, fail("cache_decode", err)
	}
	current, err := s.deps.Evidence.CountByProject(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, fail("evidence_count", err)
	}
	meta := driftMetadata(row, current, s.deps.Config.normalized().StaleDeltaRatio)
	matrix.CacheMetadata = &meta
	return matrix, nil
}

// store writes through to the cache. Failures are logged, never returned.
func (s *service) store(ctx context.Context, in GenerateInput, matrix *PainMatrix, evidenceCount int64) {
	if s.cache == nil {
		return
	}
	log := s.deps.Log.With("project_id", in.ProjectID.String())
	if in.AccountID == uuid.Nil {
		log.Info("no account id; skipping pain matrix cache write")
		return
	}
	if evidenceCount < 0 {
		return
	}
	row, err := encodeCacheRow(in, matrix, evidenceCount)
	if err != nil {
		log.Warn("pain matrix cache encode failed", "error", err)
		return
	}
	if err := s.cache.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		log.Warn("pain matrix cache write failed", "error", err)
		return
	}
	log.Debug("pain matrix cached", "evidence_count", evidenceCount)
}

// driftMetadata treats the cache as fresh while |current-cached|/cached stays under ratio.
// An empty cached count always reads as stale.
func driftMetadata(row *types.PainMatrixCache, current int64, ratio float64) CacheMetadata {
	cached := int64(row.EvidenceCount)
	meta := CacheMetadata{
		CachedAt:           row.UpdatedAt,
		EvidenceCountDelta: int(current - cached),
		IsStale:            true,
	}
	if cached > 0 {
		delta := math.Abs(float64(current-cached)) / float64(cached)
		meta.IsStale = delta >= ratio
	}
	return meta
}

func encodeCacheRow(in GenerateInput, matrix *PainMatrix, evidenceCount int64) (*types.PainMatrixCache, error) {
	snapshot := *matrix
	snapshot.CacheMetadata = nil
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	updated := matrix.GeneratedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return &types.PainMatrixCache{
		ProjectID:      in.ProjectID,
		AccountID:      in.AccountID,
		MatrixData:     datatypes.JSON(raw),
		Insights:       matrix.Insights,
		EvidenceCount:  int(evidenceCount),
		PainCount:      len(matrix.PainThemes),
		UserGroupCount: len(matrix.UserGroups),
		UpdatedAt:      updated,
	}, nil
}

func decodeCacheRow(row *types.PainMatrixCache) (*PainMatrix, error) {
	if row == nil || len(row.MatrixData) == 0 {
		return nil, fmt.Errorf("empty matrix_data")
	}
	var m PainMatrix
	if err := json.Unmarshal(row.MatrixData, &m); err != nil {
		return nil, err
	}
	if m.Insights == "" {
		m.Insights = row.Insights
	}
	if m.PainThemes == nil {
		m.PainThemes = []PainTheme{}
	}
	if m.UserGroups == nil {
		m.UserGroups = []UserGroup{}
	}
	if m.Cells == nil {
		m.Cells = []MatrixCell{}
	}
	return &m, nil
}
