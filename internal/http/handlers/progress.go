package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/http/response"
	"github.com/yungbote/neurobridge-progress/internal/modules/progress"
	"github.com/yungbote/neurobridge-progress/internal/platform/apierr"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

// ProgressService is the slice of progress.Usecases the handler serves.
type ProgressService interface {
	MarkPage(ctx context.Context, in progress.MarkPageInput) (progress.MarkPageResult, error)
	RecordPageView(ctx context.Context, in progress.RecordPageViewInput) (progress.RecordPageViewResult, error)
	RetryCertificate(ctx context.Context, learnerID, courseID uuid.UUID) (progress.RetryCertificateResult, error)
	GetCourseProgress(ctx context.Context, learnerID, courseID uuid.UUID) (progress.CourseProgressView, error)
	GetStreak(ctx context.Context, learnerID uuid.UUID) (progress.StreakView, error)
	LearnerStats(ctx context.Context, learnerID uuid.UUID) (types.LearnerStats, error)
	ListAchievements(ctx context.Context, learnerID uuid.UUID) ([]progress.AchievementView, error)
	ListCertificates(ctx context.Context, learnerID uuid.UUID) ([]*types.Certificate, error)
	VerifyCertificate(ctx context.Context, number string) (*types.Certificate, error)
}

type ProgressHandler struct {
	log *logger.Logger
	svc ProgressService
}

func NewProgressHandler(log *logger.Logger, svc ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log: log.With("handler", "ProgressHandler"),
		svc: svc,
	}
}

type certificateJSON struct {
	ID                uuid.UUID `json:"id"`
	CertificateNumber string    `json:"certificate_number"`
	CourseID          uuid.UUID `json:"course_id"`
	CompletedAt       time.Time `json:"completed_at"`
	IssuedAt          time.Time `json:"issued_at"`
}

func toCertificateJSON(c *types.Certificate) *certificateJSON {
	if c == nil {
		return nil
	}
	return &certificateJSON{
		ID:                c.ID,
		CertificateNumber: c.CertificateNumber,
		CourseID:          c.CourseID,
		CompletedAt:       c.CompletedAt,
		IssuedAt:          c.IssuedAt,
	}
}

type markPageResponse struct {
	CompletedCount    int                        `json:"completed_count"`
	TotalPages        int                        `json:"total_pages"`
	PercentComplete   int                        `json:"percent_complete"`
	CourseCompleted   bool                       `json:"course_completed"`
	CourseProgress    *types.CourseProgress      `json:"course_progress"`
	Certificate       *certificateJSON           `json:"certificate"`
	CertificateIssued bool                       `json:"certificate_issued"`
	CertificateError  *response.APIError         `json:"certificate_error"`
	Streak            *types.StreakState         `json:"streak"`
	NewAchievements   []*types.AchievementUnlock `json:"new_achievements"`
}

func toMarkPageResponse(res progress.MarkPageResult) markPageResponse {
	out := markPageResponse{
		CompletedCount:    res.CompletedCount,
		TotalPages:        res.TotalPages,
		PercentComplete:   res.PercentComplete,
		CourseCompleted:   res.CourseCompleted,
		CourseProgress:    res.CourseProgress,
		Certificate:       toCertificateJSON(res.Certificate),
		CertificateIssued: res.CertificateIssued,
		Streak:            res.Streak,
		NewAchievements:   res.NewAchievements,
	}
	if out.NewAchievements == nil {
		out.NewAchievements = []*types.AchievementUnlock{}
	}
	if res.CertificateError != nil {
		e := response.ToAPIError(apierr.FromAggregate(res.CertificateError))
		out.CertificateError = &e
	}
	return out
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProgressHandler) fail(c *gin.Context, op string, err error) {
	ae := apierr.FromAggregate(err)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error(op+" failed", "error", err, "path", c.FullPath())
	}
	response.RespondAggregateError(c, err)
}

// POST /api/learners/:learnerId/pages/:pageId/complete
func (h *ProgressHandler) MarkPage(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	pageID, ok := parseUUIDParam(c, "pageId")
	if !ok {
		return
	}
	var req struct {
		CourseID  *uuid.UUID `json:"course_id"`
		Completed *bool      `json:"completed"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", err)
			return
		}
	}
	in := progress.MarkPageInput{LearnerID: learnerID, PageID: pageID, Completed: true}
	if req.CourseID != nil {
		in.CourseID = *req.CourseID
	}
	if req.Completed != nil {
		in.Completed = *req.Completed
	}
	res, err := h.svc.MarkPage(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "MarkPage", err)
		return
	}
	response.RespondOK(c, toMarkPageResponse(res))
}

// POST /api/learners/:learnerId/pages/:pageId/view
func (h *ProgressHandler) RecordPageView(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	pageID, ok := parseUUIDParam(c, "pageId")
	if !ok {
		return
	}
	var req struct {
		CourseID *uuid.UUID `json:"course_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", err)
			return
		}
	}
	in := progress.RecordPageViewInput{LearnerID: learnerID, PageID: pageID}
	if req.CourseID != nil {
		in.CourseID = *req.CourseID
	}
	res, err := h.svc.RecordPageView(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "RecordPageView", err)
		return
	}
	response.RespondOK(c, gin.H{"page": res.Page, "course_progress": res.CourseProgress})
}

// GET /api/learners/:learnerId/courses/:courseId/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	courseID, ok := parseUUIDParam(c, "courseId")
	if !ok {
		return
	}
	view, err := h.svc.GetCourseProgress(c.Request.Context(), learnerID, courseID)
	if err != nil {
		h.fail(c, "GetCourseProgress", err)
		return
	}
	pages := make(map[string]bool, len(view.CompletedPages))
	for id, done := range view.CompletedPages {
		pages[id.String()] = done
	}
	response.RespondOK(c, gin.H{
		"completed_pages":  pages,
		"total_pages":      view.TotalPages,
		"completed_count":  view.CompletedCount,
		"percent_complete": view.PercentComplete,
		"course_completed": view.Completed,
		"course_progress":  view.CourseProgress,
	})
}

// POST /api/learners/:learnerId/courses/:courseId/certificate
func (h *ProgressHandler) RetryCertificate(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	courseID, ok := parseUUIDParam(c, "courseId")
	if !ok {
		return
	}
	res, err := h.svc.RetryCertificate(c.Request.Context(), learnerID, courseID)
	if err != nil {
		h.fail(c, "RetryCertificate", err)
		return
	}
	achievements := res.NewAchievements
	if achievements == nil {
		achievements = []*types.AchievementUnlock{}
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"certificate":        toCertificateJSON(res.Certificate),
		"certificate_issued": res.Created,
		"course_progress":    res.CourseProgress,
		"new_achievements":   achievements,
	})
}

// GET /api/learners/:learnerId/streak
func (h *ProgressHandler) GetStreak(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	view, err := h.svc.GetStreak(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, "GetStreak", err)
		return
	}
	response.RespondOK(c, gin.H{"streak": view})
}

// GET /api/learners/:learnerId/stats
func (h *ProgressHandler) GetStats(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	stats, err := h.svc.LearnerStats(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, "GetStats", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// GET /api/learners/:learnerId/achievements
func (h *ProgressHandler) ListAchievements(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	views, err := h.svc.ListAchievements(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, "ListAchievements", err)
		return
	}
	response.RespondOK(c, gin.H{"achievements": views})
}

// GET /api/learners/:learnerId/certificates
func (h *ProgressHandler) ListCertificates(c *gin.Context) {
	learnerID, ok := parseUUIDParam(c, "learnerId")
	if !ok {
		return
	}
	rows, err := h.svc.ListCertificates(c.Request.Context(), learnerID)
	if err != nil {
		h.fail(c, "ListCertificates", err)
		return
	}
	out := make([]*certificateJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCertificateJSON(row))
	}
	response.RespondOK(c, gin.H{"certificates": out})
}

// GET /api/certificates/:number (public)
func (h *ProgressHandler) VerifyCertificate(c *gin.Context) {
	cert, err := h.svc.VerifyCertificate(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.fail(c, "VerifyCertificate", err)
		return
	}
	response.RespondOK(c, gin.H{
		"valid":       true,
		"certificate": toCertificateJSON(cert),
		"learner_id":  cert.LearnerID,
	})
}
