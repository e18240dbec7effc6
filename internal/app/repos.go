package app

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/painlens-backend/internal/data/repos"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Repos struct {
	Evidence        repos.EvidenceRepo
	Facets          repos.FacetRepo
	Projects        repos.ProjectRepo
	UserGroups      repos.UserGroupRepo
	PainMatrixCache repos.PainMatrixCacheRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger, rdb *goredis.Client, cacheTTL time.Duration) Repos {
	log.Info("Wiring repos...")
	cache := repos.NewPainMatrixCacheRepo(db, log)
	if rdb != nil {
		cache = repos.NewRedisPainMatrixCacheRepo(cache, rdb, cacheTTL, log)
	}
	return Repos{
		Evidence:        repos.NewEvidenceRepo(db, log),
		Facets:          repos.NewFacetRepo(db, log),
		Projects:        repos.NewProjectRepo(db, log),
		UserGroups:      repos.NewUserGroupRepo(db, log),
		PainMatrixCache: cache,
	}
}
