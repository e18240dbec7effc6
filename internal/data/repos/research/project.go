package research

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type ProjectRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Project
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
