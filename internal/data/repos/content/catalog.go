package content

import (
	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
	"gorm.io/gorm"
)

// CatalogRepo is the read-only view of the course → section → page hierarchy.
type CatalogRepo interface {
	GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	// GetPage resolves a page together with the course owning its section.
	GetPage(dbc dbctx.Context, pageID uuid.UUID) (*types.PageRef, error)
	// ListPages returns every live page of the course ordered by section then page position.
	ListPages(dbc dbctx.Context, courseID uuid.UUID) ([]types.PageRef, error)
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return &catalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

func (r *catalogRepo) GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Course
	if err := dbc.DB(r.db).Where("id = ?", courseID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *catalogRepo) pageRefs(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db).
		Table("content_page AS p").
		Select("p.id AS page_id, p.section_id AS section_id, s.course_id AS course_id").
		Joins("JOIN course_section AS s ON s.id = p.section_id AND s.deleted_at IS NULL").
		Where("p.deleted_at IS NULL")
}

func (r *catalogRepo) GetPage(dbc dbctx.Context, pageID uuid.UUID) (*types.PageRef, error) {
	if pageID == uuid.Nil {
		return nil, nil
	}
	var rows []types.PageRef
	if err := r.pageRefs(dbc).Where("p.id = ?", pageID).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *catalogRepo) ListPages(dbc dbctx.Context, courseID uuid.UUID) ([]types.PageRef, error) {
	out := []types.PageRef{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := r.pageRefs(dbc).
		Where("s.course_id = ?", courseID).
		Order("s.position ASC, p.position ASC, p.id ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
