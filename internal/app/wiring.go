package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/neurobridge-progress/internal/clients/redis"
	dataagg "github.com/yungbote/neurobridge-progress/internal/data/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/data/db"
	"github.com/yungbote/neurobridge-progress/internal/data/repos"
	httpx "github.com/yungbote/neurobridge-progress/internal/http"
	httpH "github.com/yungbote/neurobridge-progress/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-progress/internal/http/middleware"
	"github.com/yungbote/neurobridge-progress/internal/modules/progress"
	"github.com/yungbote/neurobridge-progress/internal/observability"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

type Clients struct {
	Redis             *goredis.Client
	CertificateEvents redisclient.CertificateEventPublisher
}

func (c Clients) Close() {
	if c.CertificateEvents != nil {
		_ = c.CertificateEvents.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

type redisPinger struct{ rdb *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; certificate events are disabled")
	}
	rcfg := redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Stream:   cfg.CertificateStream,
		MaxLen:   cfg.StreamMaxLen,
	}
	rdb, err := redisclient.Dial(context.Background(), rcfg)
	if err != nil {
		return Clients{}, err
	}
	return Clients{
		Redis:             rdb,
		CertificateEvents: redisclient.NewCertificateEventPublisher(log, rdb, rcfg),
	}, nil
}

func wireRepos(g *gorm.DB, log *logger.Logger) repos.Set {
	log.Info("Wiring repos...")
	return repos.NewSet(g, log)
}

type Services struct {
	Progress progress.Usecases
}

func wireServices(g *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, set repos.Set, clients Clients) Services {
	log.Info("Wiring services...")
	base := dataagg.BaseDeps{
		DB:    g,
		Log:   log,
		Hooks: dataagg.NewObservabilityHooks(metrics),
	}
	uc := progress.New(progress.UsecasesDeps{
		Log:                    log,
		Metrics:                metrics,
		Users:                  set.Users,
		Catalog:                set.Catalog,
		Comments:               set.Comments,
		PageProgress:           set.PageProgress,
		CourseProgress:         set.CourseProgress,
		Streaks:                set.Streaks,
		AchievementDefinitions: set.AchievementDefinitions,
		AchievementUnlocks:     set.AchievementUnlocks,
		Certificates:           set.Certificates,
		Pages: dataagg.NewPageProgressAggregate(dataagg.PageProgressAggregateDeps{
			Base:           base,
			Users:          set.Users,
			Catalog:        set.Catalog,
			PageProgress:   set.PageProgress,
			CourseProgress: set.CourseProgress,
		}),
		Streak: dataagg.NewStreakAggregate(dataagg.StreakAggregateDeps{
			Base:        base,
			Streaks:     set.Streaks,
			Location:    cfg.StreakLocation,
			MaxAttempts: cfg.StreakCASMaxAttempts,
		}),
		Achievements: dataagg.NewAchievementAggregate(dataagg.AchievementAggregateDeps{
			Base:    base,
			Unlocks: set.AchievementUnlocks,
		}),
		Issuer: dataagg.NewCertificateAggregate(dataagg.CertificateAggregateDeps{
			Base:         base,
			Certificates: set.Certificates,
			Prefix:       cfg.CertificatePrefix,
		}),
		Events:         clients.CertificateEvents,
		StreakLocation: cfg.StreakLocation,
	})
	return Services{Progress: uc}
}

func wireRouterConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, store *db.Service, clients Clients, services Services) httpx.RouterConfig {
	log.Info("Wiring handlers...")
	pingers := map[string]httpH.Pinger{"database": store}
	if clients.Redis != nil {
		pingers["redis"] = redisPinger{rdb: clients.Redis}
	}
	return httpx.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		LearnerAuth:     httpMW.NewLearnerAuth(log, cfg.JWTSecretKey),
		ProgressHandler: httpH.NewProgressHandler(log, services.Progress),
		HealthHandler:   httpH.NewHealthHandler(pingers),
	}
}
