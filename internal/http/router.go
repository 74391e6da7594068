package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-progress/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-progress/internal/http/middleware"
	"github.com/yungbote/neurobridge-progress/internal/observability"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	LearnerAuth     *httpMW.LearnerAuth
	ProgressHandler *httpH.ProgressHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.ProgressHandler == nil {
		return r
	}

	// Public certificate verification
	api.GET("/certificates/:number", cfg.ProgressHandler.VerifyCertificate)

	learner := api.Group("/learners/:" + httpMW.LearnerParam)
	if cfg.LearnerAuth != nil {
		learner.Use(cfg.LearnerAuth.RequireLearner())
	}
	{
		learner.POST("/pages/:pageId/complete", cfg.ProgressHandler.MarkPage)
		learner.POST("/pages/:pageId/view", cfg.ProgressHandler.RecordPageView)
		learner.GET("/courses/:courseId/progress", cfg.ProgressHandler.GetCourseProgress)
		learner.POST("/courses/:courseId/certificate", cfg.ProgressHandler.RetryCertificate)
		learner.GET("/streak", cfg.ProgressHandler.GetStreak)
		learner.GET("/stats", cfg.ProgressHandler.GetStats)
		learner.GET("/achievements", cfg.ProgressHandler.ListAchievements)
		learner.GET("/certificates", cfg.ProgressHandler.ListCertificates)
	}

	return r
}
