package progress

import (
	"strings"

	"github.com/google/uuid"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
	"gorm.io/gorm"
)

type CertificateRepo interface {
	GetByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Certificate, error)
	GetByNumber(dbc dbctx.Context, number string) (*types.Certificate, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Certificate, error)
	CountByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error)
	// Create is a plain insert; uniqueness on (learner_id, course_id) and
	// certificate_number surfaces as a unique violation.
	Create(dbc dbctx.Context, row *types.Certificate) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{db: db, log: baseLog.With("repo", "CertificateRepo")}
}

func (r *certificateRepo) first(q *gorm.DB) (*types.Certificate, error) {
	var row types.Certificate
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *certificateRepo) GetByLearnerCourse(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.Certificate, error) {
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("learner_id = ? AND course_id = ?", learnerID, courseID))
}

func (r *certificateRepo) GetByNumber(dbc dbctx.Context, number string) (*types.Certificate, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("certificate_number = ?", number))
}

func (r *certificateRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.Certificate, error) {
	out := []*types.Certificate{}
	if learnerID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("learner_id = ?", learnerID).
		Order("issued_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *certificateRepo) CountByLearner(dbc dbctx.Context, learnerID uuid.UUID) (int64, error) {
	if learnerID == uuid.Nil {
		return 0, nil
	}
	var n int64
	if err := dbc.DB(r.db).Model(&types.Certificate{}).Where("learner_id = ?", learnerID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *certificateRepo) Create(dbc dbctx.Context, row *types.Certificate) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(row).Error
}
