package lenses

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type PainMatrixCacheRepo interface {
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.PainMatrixCache, error)
	Upsert(dbc dbctx.Context, row *types.PainMatrixCache) error
}

type painMatrixCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPainMatrixCacheRepo(db *gorm.DB, baseLog *logger.Logger) PainMatrixCacheRepo {
	return &painMatrixCacheRepo{db: db, log: baseLog.With("repo", "PainMatrixCacheRepo")}
}

func (r *painMatrixCacheRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.PainMatrixCache, error) {
	if projectID == uuid.Nil {
		return nil, nil
	}
	var row types.PainMatrixCache
	if err := dbc.Conn(r.db).Where("project_id = ?", projectID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Upsert replaces the project's row. Concurrent writers race and the last one wins.
func (r *painMatrixCacheRepo) Upsert(dbc dbctx.Context, row *types.PainMatrixCache) error {
	if row == nil || row.ProjectID == uuid.Nil || row.AccountID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id",
				"matrix_data",
				"insights",
				"evidence_count",
				"pain_count",
				"user_group_count",
				"updated_at",
			}),
		}).
		Create(row).Error
}
