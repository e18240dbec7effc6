package research

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

// EvidenceFacetRow is an evidence row joined to one of its facets.
type EvidenceFacetRow struct {
	EvidenceID       uuid.UUID `gorm:"column:evidence_id"`
	Verbatim         string    `gorm:"column:verbatim"`
	Confidence       string    `gorm:"column:confidence"`
	WillingnessToPay string    `gorm:"column:willingness_to_pay"`
	KindSlug         string    `gorm:"column:kind_slug"`
	Label            string    `gorm:"column:label"`
}

type EvidenceRepo interface {
	ListWithLegacyPains(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Evidence, error)
	ListWithFacets(dbc dbctx.Context, projectID uuid.UUID, kindSlug string) ([]EvidenceFacetRow, error)
	CountByProject(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	ListPeopleLinks(dbc dbctx.Context, evidenceIDs []uuid.UUID) ([]*types.EvidencePerson, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

func (r *evidenceRepo) ListWithLegacyPains(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Evidence, error) {
	var out []*types.Evidence
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Select("id", "project_id", "verbatim", "confidence", "willingness_to_pay", "pains", "created_at").
		Where("project_id = ? AND pains IS NOT NULL AND pains <> 'null'", projectID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *evidenceRepo) ListWithFacets(dbc dbctx.Context, projectID uuid.UUID, kindSlug string) ([]EvidenceFacetRow, error) {
	var out []EvidenceFacetRow
	if projectID == uuid.Nil || kindSlug == "" {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Table("evidence AS e").
		Select("e.id AS evidence_id, e.verbatim, e.confidence, e.willingness_to_pay, f.kind_slug, f.label").
		Joins("JOIN evidence_facet AS f ON f.evidence_id = e.id").
		Where("e.project_id = ? AND f.kind_slug = ?", projectID, kindSlug).
		Order("e.created_at ASC, e.id ASC, f.created_at ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *evidenceRepo) CountByProject(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	if projectID == uuid.Nil {
		return 0, nil
	}
	var n int64
	if err := dbc.Conn(r.db).Model(&types.Evidence{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Postgres caps a statement at 65535 bind parameters.
var peopleLinkBatchSize = 10000

// ListPeopleLinks queries in batches; links for one evidence id stay in created_at order.
func (r *evidenceRepo) ListPeopleLinks(dbc dbctx.Context, evidenceIDs []uuid.UUID) ([]*types.EvidencePerson, error) {
	var out []*types.EvidencePerson
	for start := 0; start < len(evidenceIDs); start += peopleLinkBatchSize {
		end := min(start+peopleLinkBatchSize, len(evidenceIDs))
		var batch []*types.EvidencePerson
		if err := dbc.Conn(r.db).
			Where("evidence_id IN ?", evidenceIDs[start:end]).
			Order("evidence_id ASC, created_at ASC").
			Find(&batch).Error; err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}
