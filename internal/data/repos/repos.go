package repos

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/painlens-backend/internal/data/repos/lenses"
	"github.com/yungbote/painlens-backend/internal/data/repos/research"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type EvidenceRepo = research.EvidenceRepo
type EvidenceFacetRow = research.EvidenceFacetRow
type FacetRepo = research.FacetRepo
type FacetClusterPair = research.FacetClusterPair
type ProjectRepo = research.ProjectRepo
type UserGroupRepo = research.UserGroupRepo
type GroupQuery = research.GroupQuery

type PainMatrixCacheRepo = lenses.PainMatrixCacheRepo

var ErrSimilarityUnavailable = research.ErrSimilarityUnavailable

func NewEvidenceRepo(db *gorm.DB, log *logger.Logger) EvidenceRepo {
	return research.NewEvidenceRepo(db, log)
}

func NewFacetRepo(db *gorm.DB, log *logger.Logger) FacetRepo {
	return research.NewFacetRepo(db, log)
}

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return research.NewProjectRepo(db, log)
}

func NewUserGroupRepo(db *gorm.DB, log *logger.Logger) UserGroupRepo {
	return research.NewUserGroupRepo(db, log)
}

func NewPainMatrixCacheRepo(db *gorm.DB, log *logger.Logger) PainMatrixCacheRepo {
	return lenses.NewPainMatrixCacheRepo(db, log)
}

// NewRedisPainMatrixCacheRepo layers a redis hot tier over inner.
func NewRedisPainMatrixCacheRepo(inner PainMatrixCacheRepo, rdb goredis.Cmdable, ttl time.Duration, log *logger.Logger) PainMatrixCacheRepo {
	return lenses.NewRedisPainMatrixCacheRepo(inner, rdb, ttl, log)
}
