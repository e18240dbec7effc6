package research

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
	"github.com/yungbote/painlens-backend/internal/platform/dbctx"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

// GroupQuery selects which segments become user groups. SegmentID pins a single facet value;
// SegmentKindSlug restricts to one facet kind. Both empty means every kind.
type GroupQuery struct {
	ProjectID       uuid.UUID
	SegmentID       uuid.UUID
	SegmentKindSlug string
	MinGroupSize    int
}

type UserGroupRepo interface {
	DeriveUserGroups(dbc dbctx.Context, q GroupQuery) ([]types.UserGroup, error)
	SegmentKindSummaries(dbc dbctx.Context, projectID uuid.UUID) ([]types.SegmentKindSummary, error)
}

type userGroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserGroupRepo(db *gorm.DB, baseLog *logger.Logger) UserGroupRepo {
	return &userGroupRepo{db: db, log: baseLog.With("repo", "UserGroupRepo")}
}

type segmentMemberRow struct {
	FacetID  uuid.UUID `gorm:"column:facet_id"`
	KindSlug string    `gorm:"column:kind_slug"`
	Slug     string    `gorm:"column:slug"`
	Label    string    `gorm:"column:label"`
	PersonID uuid.UUID `gorm:"column:person_id"`
}

func (r *userGroupRepo) DeriveUserGroups(dbc dbctx.Context, q GroupQuery) ([]types.UserGroup, error) {
	out := []types.UserGroup{}
	if q.ProjectID == uuid.Nil {
		return out, nil
	}
	tx := dbc.Conn(r.db).
		Table("person_facet AS pf").
		Select("fa.id AS facet_id, fa.kind_slug, fa.slug, fa.label, pf.person_id").
		Joins("JOIN facet_account AS fa ON fa.id = pf.facet_account_id").
		Joins("JOIN people AS p ON p.id = pf.person_id").
		Where("pf.project_id = ? AND p.project_id = ?", q.ProjectID, q.ProjectID)
	if kind := strings.TrimSpace(q.SegmentKindSlug); kind != "" {
		tx = tx.Where("fa.kind_slug = ?", kind)
	}
	if q.SegmentID != uuid.Nil {
		tx = tx.Where("fa.id = ?", q.SegmentID)
	}
	var rows []segmentMemberRow
	if err := tx.Order("fa.id ASC, pf.person_id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	byFacet := map[uuid.UUID]*types.UserGroup{}
	seen := map[uuid.UUID]map[uuid.UUID]bool{}
	order := make([]uuid.UUID, 0)
	for _, row := range rows {
		g := byFacet[row.FacetID]
		if g == nil {
			g = &types.UserGroup{
				ID:        groupID(row.KindSlug, row.Slug, row.FacetID),
				Name:      strings.TrimSpace(row.Label),
				KindSlug:  row.KindSlug,
				MemberIDs: []uuid.UUID{},
			}
			byFacet[row.FacetID] = g
			seen[row.FacetID] = map[uuid.UUID]bool{}
			order = append(order, row.FacetID)
		}
		if seen[row.FacetID][row.PersonID] {
			continue
		}
		seen[row.FacetID][row.PersonID] = true
		g.MemberIDs = append(g.MemberIDs, row.PersonID)
	}

	minSize := q.MinGroupSize
	if minSize < 1 {
		minSize = 1
	}
	for _, id := range order {
		g := byFacet[id]
		g.MemberCount = len(g.MemberIDs)
		if g.MemberCount < minSize {
			continue
		}
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MemberCount != out[j].MemberCount {
			return out[i].MemberCount > out[j].MemberCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *userGroupRepo) SegmentKindSummaries(dbc dbctx.Context, projectID uuid.UUID) ([]types.SegmentKindSummary, error) {
	out := []types.SegmentKindSummary{}
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Table("person_facet AS pf").
		Select("fa.kind_slug AS kind, COUNT(DISTINCT pf.person_id) AS person_count").
		Joins("JOIN facet_account AS fa ON fa.id = pf.facet_account_id").
		Where("pf.project_id = ?", projectID).
		Group("fa.kind_slug").
		Order("person_count DESC, fa.kind_slug ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func groupID(kind, slug string, facetID uuid.UUID) string {
	kind = strings.TrimSpace(kind)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = facetID.String()
	}
	if kind == "" {
		return slug
	}
	return kind + ":" + slug
}
