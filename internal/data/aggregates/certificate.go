package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	types "github.com/yungbote/neurobridge-progress/internal/domain"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

const (
	DefaultCertificatePrefix   = "CERT"
	defaultCertificateAttempts = 5
)

// NumberGenerator returns a candidate certificate number for an issuance at.
type NumberGenerator func(prefix string, at time.Time) string

// NewCertificateNumber builds PREFIX-YYYYMMDD-XXXXXXXXXX where the suffix is
// ten upper-case hex characters of a random UUID.
func NewCertificateNumber(prefix string, at time.Time) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultCertificatePrefix
	}
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), strings.ToUpper(raw[:10]))
}

type CertificateAggregateDeps struct {
	Base         BaseDeps
	Certificates repos.CertificateRepo
	Prefix       string
	NewNumber    NumberGenerator
	MaxAttempts  int
}

type certificateAggregate struct {
	deps CertificateAggregateDeps
}

func NewCertificateAggregate(deps CertificateAggregateDeps) domainagg.CertificateAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "CertificateAggregate")
	if strings.TrimSpace(deps.Prefix) == "" {
		deps.Prefix = DefaultCertificatePrefix
	}
	if deps.NewNumber == nil {
		deps.NewNumber = NewCertificateNumber
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = defaultCertificateAttempts
	}
	return &certificateAggregate{deps: deps}
}

func (a *certificateAggregate) Contract() domainagg.Contract {
	return domainagg.CertificateAggregateContract
}

// IssueIfEligible returns the learner's certificate for the course, minting it
// on first call. A unique violation means another caller won the race on the
// (learner, course) pair or the number collided; the first is answered with
// the winner's row, the second with a fresh number.
func (a *certificateAggregate) IssueIfEligible(ctx context.Context, in domainagg.IssueCertificateInput) (domainagg.IssueCertificateResult, error) {
	const op = "progress.certificate.issue"
	if in.LearnerID == uuid.Nil || in.CourseID == uuid.Nil {
		return domainagg.IssueCertificateResult{}, MapError(op, ValidationError("learner_id and course_id are required"))
	}
	cp := in.CourseProgress
	if cp == nil || !cp.Completed {
		return domainagg.IssueCertificateResult{}, MapError(op, PreconditionError("course is not complete"))
	}
	if cp.LearnerID != in.LearnerID || cp.CourseID != in.CourseID {
		return domainagg.IssueCertificateResult{}, MapError(op, ValidationError("course progress does not match learner and course"))
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	var lastErr error
	for attempt := 1; attempt <= a.deps.MaxAttempts; attempt++ {
		var out domainagg.IssueCertificateResult
		err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
			out = domainagg.IssueCertificateResult{}
			existing, err := a.deps.Certificates.GetByLearnerCourse(dbc, in.LearnerID, in.CourseID)
			if err != nil {
				return err
			}
			if existing != nil {
				out.Certificate = existing
				return nil
			}
			row := &types.Certificate{
				ID:                uuid.New(),
				LearnerID:         in.LearnerID,
				CourseID:          in.CourseID,
				CertificateNumber: a.deps.NewNumber(a.deps.Prefix, at),
				CompletedAt:       at,
				IssuedAt:          at,
				CreatedAt:         at,
			}
			if err := a.deps.Certificates.Create(dbc, row); err != nil {
				return err
			}
			out.Certificate = row
			out.Created = true
			return nil
		})
		if err == nil {
			if out.Created {
				a.deps.Base.Log.Info("certificate issued",
					"learner_id", in.LearnerID,
					"course_id", in.CourseID,
					"certificate_number", out.Certificate.CertificateNumber,
				)
			}
			return out, nil
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			return domainagg.IssueCertificateResult{}, err
		}
		lastErr = err

		// The failed transaction is gone; look again outside it.
		winner, rerr := a.deps.Certificates.GetByLearnerCourse(dbctx.Background(ctx), in.LearnerID, in.CourseID)
		if rerr != nil {
			return domainagg.IssueCertificateResult{}, MapError(op, rerr)
		}
		if winner != nil {
			return domainagg.IssueCertificateResult{Certificate: winner}, nil
		}
		a.deps.Base.Log.Warn("certificate number collision, regenerating", "attempt", attempt, "course_id", in.CourseID)
	}
	return domainagg.IssueCertificateResult{}, domainagg.NewError(domainagg.CodeRetryable, op, "could not allocate a unique certificate number", lastErr)
}
