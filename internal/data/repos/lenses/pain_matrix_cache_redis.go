package lenses

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

const redisKeyPrefix = "painlens:pain_matrix:"

// redisPainMatrixCacheRepo keeps a hot copy of each project's cache row in redis in front of
// the SQL repo. SQL stays the source of truth; redis failures only cost a round trip.
type redisPainMatrixCacheRepo struct {
	inner PainMatrixCacheRepo
	rdb   goredis.Cmdable
	ttl   time.Duration
	log   *logger.Logger
}

func NewRedisPainMatrixCacheRepo(inner PainMatrixCacheRepo, rdb goredis.Cmdable, ttl time.Duration, baseLog *logger.Logger) PainMatrixCacheRepo {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &redisPainMatrixCacheRepo{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   baseLog.With("repo", "RedisPainMatrixCacheRepo"),
	}
}

func ctxOf(dbc dbctx.Context) context.Context {
	if dbc.Ctx == nil {
		return context.Background()
	}
	return dbc.Ctx
}

func redisKey(projectID uuid.UUID) string { return redisKeyPrefix + projectID.String() }

func (r *redisPainMatrixCacheRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.PainMatrixCache, error) {
	if projectID == uuid.Nil {
		return nil, nil
	}
	raw, err := r.rdb.Get(ctxOf(dbc), redisKey(projectID)).Bytes()
	switch {
	case err == nil:
		var row types.PainMatrixCache
		uErr := json.Unmarshal(raw, &row)
		if uErr == nil {
			return &row, nil
		}
		r.log.Warn("redis cache row undecodable (falling back to sql)", "project_id", projectID.String(), "error", uErr.Error())
	case errors.Is(err, goredis.Nil):
	default:
		r.log.Warn("redis get failed (falling back to sql)", "project_id", projectID.String(), "error", err.Error())
	}

	row, err := r.inner.GetByProjectID(dbc, projectID)
	if err != nil || row == nil {
		return row, err
	}
	r.store(dbc, row)
	return row, nil
}

// Upsert writes sql, then drops the redis key so the next read backfills from sql.
// Concurrent builds are last-writer-wins in sql; setting redis here instead could leave it
// holding the losing row until the ttl expires. A read that loaded the old sql row before
// the write can still backfill it, which bounds staleness to one ttl.
func (r *redisPainMatrixCacheRepo) Upsert(dbc dbctx.Context, row *types.PainMatrixCache) error {
	if err := r.inner.Upsert(dbc, row); err != nil {
		return err
	}
	if row == nil || row.ProjectID == uuid.Nil {
		return nil
	}
	if err := r.rdb.Del(ctxOf(dbc), redisKey(row.ProjectID)).Err(); err != nil {
		r.log.Warn("redis del failed (continuing)", "project_id", row.ProjectID.String(), "error", err.Error())
	}
	return nil
}

func (r *redisPainMatrixCacheRepo) store(dbc dbctx.Context, row *types.PainMatrixCache) {
	raw, err := json.Marshal(row)
	if err != nil {
		r.log.Warn("redis cache encode failed", "project_id", row.ProjectID.String(), "error", err.Error())
		return
	}
	if err := r.rdb.Set(ctxOf(dbc), redisKey(row.ProjectID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed (continuing)", "project_id", row.ProjectID.String(), "error", err.Error())
	}
}
