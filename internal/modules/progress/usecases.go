package progress

import (
	"time"

	"github.com/yungbote/neurobridge-progress/internal/clients/redis"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-progress/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/observability"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

type UsecasesDeps struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	Users                  repos.UserRepo
	Catalog                repos.CatalogRepo
	Comments               repos.CommentRepo
	PageProgress           repos.PageProgressRepo
	CourseProgress         repos.CourseProgressRepo
	Streaks                repos.StreakStateRepo
	AchievementDefinitions repos.AchievementDefinitionRepo
	AchievementUnlocks     repos.AchievementUnlockRepo
	Certificates           repos.CertificateRepo

	Pages        domainagg.PageProgressAggregate
	Streak       domainagg.StreakAggregate
	Achievements domainagg.AchievementAggregate
	Issuer       domainagg.CertificateAggregate

	// Optional: nil publishes nothing.
	Events redis.CertificateEventPublisher

	// StreakLocation decides the calendar day for read models. Nil means UTC.
	StreakLocation *time.Location
	Now            func() time.Time
}

// Usecases is the Completion Orchestrator plus the progress read models.
type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "progress")
	if deps.Events == nil {
		deps.Events = redis.NoopCertificateEvents{}
	}
	if deps.StreakLocation == nil {
		deps.StreakLocation = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

func (u Usecases) now() time.Time {
	return u.deps.Now().UTC()
}
