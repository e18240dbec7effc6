package research

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

// ErrSimilarityUnavailable means the database cannot answer similarity queries at all
// (no find_facet_clusters function, or a driver without vector support).
var ErrSimilarityUnavailable = errors.New("facet similarity search unavailable")

// FacetClusterPair is one pair of facet labels the similarity search considers alike.
type FacetClusterPair struct {
	Label1     string  `gorm:"column:label_1" json:"label_1"`
	Label2     string  `gorm:"column:label_2" json:"label_2"`
	Similarity float64 `gorm:"column:similarity" json:"similarity"`
}

type FacetRepo interface {
	CountEmbedded(dbc dbctx.Context, projectID uuid.UUID, kindSlug string) (int64, error)
	FindClusters(dbc dbctx.Context, projectID uuid.UUID, kindSlug string, similarityThreshold float64) ([]FacetClusterPair, error)
}

type facetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFacetRepo(db *gorm.DB, baseLog *logger.Logger) FacetRepo {
	return &facetRepo{db: db, log: baseLog.With("repo", "FacetRepo")}
}

func (r *facetRepo) CountEmbedded(dbc dbctx.Context, projectID uuid.UUID, kindSlug string) (int64, error) {
	if projectID == uuid.Nil || kindSlug == "" {
		return 0, nil
	}
	var n int64
	if err := dbc.Conn(r.db).
		Model(&types.EvidenceFacet{}).
		Where("project_id = ? AND kind_slug = ? AND embedding IS NOT NULL", projectID, kindSlug).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *facetRepo) FindClusters(dbc dbctx.Context, projectID uuid.UUID, kindSlug string, similarityThreshold float64) ([]FacetClusterPair, error) {
	var out []FacetClusterPair
	if projectID == uuid.Nil || kindSlug == "" {
		return out, nil
	}
	if r.db.Dialector == nil || r.db.Dialector.Name() != "postgres" {
		return nil, ErrSimilarityUnavailable
	}
	err := dbc.Conn(r.db).
		Raw("SELECT * FROM find_facet_clusters(?, ?, ?)", projectID, kindSlug, similarityThreshold).
		Scan(&out).Error
	if err != nil {
		if isUndefinedFunction(err) {
			return nil, fmt.Errorf("%w: %v", ErrSimilarityUnavailable, err)
		}
		return nil, err
	}
	return out, nil
}

func isUndefinedFunction(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "42883"
	}
	return false
}
