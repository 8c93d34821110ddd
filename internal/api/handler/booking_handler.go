package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/booking-core/internal/api/dto"
	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/lifecycle"
	"github.com/gin-gonic/gin"
)

// ActorIDKey is the gin context key holding the acting user's id
const ActorIDKey = "actor_id"

// dueLayout is the format admins send due times in
const dueLayout = "2006-01-02 15:04"

func actorID(c *gin.Context) int64 {
	return c.GetInt64(ActorIDKey)
}

func jobIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "job_id must be a positive integer")
		return 0, false
	}
	return id, true
}

// CreateJob handles POST /api/v1/jobs
func (h *BookingHandler) CreateJob(c *gin.Context) {
	var req intake.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		badRequest(c, "Invalid request body")
		return
	}

	result, err := h.manager.CreateJob(c.Request.Context(), actorID(c), req)
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateJobResponse{
		Job:             result.Job,
		NotifiedNow:     len(result.Notified.Immediate),
		NotifiedDelayed: len(result.Notified.Delayed),
	})
}

// StoreJobEmail handles POST /api/v1/jobs/:job_id/email
func (h *BookingHandler) StoreJobEmail(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req intake.EmailDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	job, err := h.manager.StoreJobEmail(c.Request.Context(), jobID, req)
	if err != nil {
		h.fail(c, "store_email", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *BookingHandler) ListJobs(c *gin.Context) {
	jobs, err := h.manager.ListUserJobs(c.Request.Context(), actorID(c))
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// ListHistory handles GET /api/v1/jobs/history
func (h *BookingHandler) ListHistory(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	userID := actorID(c)
	page := 1
	cursor, err := DecodeHistoryCursor(req.Cursor)
	if err != nil || (cursor != nil && cursor.UserID != userID) {
		h.logger.Info("Invalid cursor", slog.String("cursor", req.Cursor))
		badRequest(c, "Invalid cursor")
		return
	}
	if cursor != nil {
		page = cursor.Page
	}

	history, err := h.manager.ListUserJobHistory(c.Request.Context(), userID, page)
	if err != nil {
		h.fail(c, "history", err)
		return
	}

	resp := dto.HistoryResponse{
		Jobs:     history.Jobs,
		UserType: history.Role,
		Page:     history.Page,
		Total:    history.Total,
		NumPages: history.NumPages,
	}
	if history.Page < history.NumPages {
		resp.NextCursor = EncodeHistoryCursor(&HistoryCursor{UserID: userID, Page: history.Page + 1})
	}
	c.JSON(http.StatusOK, resp)
}

// PotentialJobs handles GET /api/v1/jobs/potential
func (h *BookingHandler) PotentialJobs(c *gin.Context) {
	jobs, err := h.manager.GetPotentialJobs(c.Request.Context(), actorID(c))
	if err != nil {
		h.fail(c, "potential", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// AcceptJob handles POST /api/v1/jobs/:job_id/accept
func (h *BookingHandler) AcceptJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	result, err := h.manager.AcceptJob(c.Request.Context(), jobID, actorID(c))
	if err != nil {
		h.fail(c, "accept", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *BookingHandler) CancelJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	job, err := h.manager.CancelJob(c.Request.Context(), jobID, actorID(c))
	if err != nil {
		h.fail(c, "cancel", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// EndJob handles POST /api/v1/jobs/:job_id/end
func (h *BookingHandler) EndJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	result, err := h.manager.EndJob(c.Request.Context(), jobID, actorID(c))
	if err != nil {
		h.fail(c, "end", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CustomerNotCall handles POST /api/v1/jobs/:job_id/not-call
func (h *BookingHandler) CustomerNotCall(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	result, err := h.manager.CustomerNotCall(c.Request.Context(), jobID, actorID(c))
	if err != nil {
		h.fail(c, "not_call", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateJob handles PATCH /api/v1/jobs/:job_id
func (h *BookingHandler) UpdateJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	cs := lifecycle.ChangeSet{
		Status:          domain.Status(strings.TrimSpace(req.Status)),
		AdminComments:   req.AdminComments,
		SessionTime:     req.SessionTime,
		FromLanguageID:  req.FromLanguageID,
		TranslatorID:    req.Translator,
		TranslatorEmail: req.TranslatorEmail,
		Reference:       req.Reference,
	}
	if req.Due != "" {
		due, err := time.ParseInLocation(dueLayout, req.Due, h.location)
		if err != nil {
			badRequest(c, "due must be formatted as YYYY-MM-DD HH:MM")
			return
		}
		cs.Due = &due
	}

	result, err := h.manager.UpdateJob(c.Request.Context(), jobID, cs, actorID(c))
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reopen handles POST /api/v1/jobs/:job_id/reopen
func (h *BookingHandler) Reopen(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	result, err := h.manager.Reopen(c.Request.Context(), jobID, actorID(c))
	if err != nil {
		h.fail(c, "reopen", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResendPush handles POST /api/v1/jobs/:job_id/notifications/push
func (h *BookingHandler) ResendPush(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	summary, err := h.manager.ResendNotifications(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, "resend_push", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Push sent", "sent": summary.Total()})
}

// ResendSMS handles POST /api/v1/jobs/:job_id/notifications/sms
func (h *BookingHandler) ResendSMS(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	count, err := h.manager.ResendSMSNotifications(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, "resend_sms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "SMS sent", "sent": count})
}

// NotifyAdminCancel handles POST /api/v1/jobs/:job_id/notifications/admin-cancel
func (h *BookingHandler) NotifyAdminCancel(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	summary, err := h.manager.NotifyByAdminCancelJob(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, "admin_cancel_notify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": summary.Total()})
}

// UpdateDistanceFeed handles PUT /api/v1/jobs/:job_id/distance
func (h *BookingHandler) UpdateDistanceFeed(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req dto.DistanceFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	err := h.manager.UpdateDistanceFeed(c.Request.Context(), domain.DistanceFeed{
		JobID:           jobID,
		Distance:        req.Distance,
		Time:            req.Time,
		SessionTime:     req.SessionTime,
		AdminComment:    req.AdminComment,
		Flagged:         req.Flagged,
		ManuallyHandled: req.ManuallyHandled,
		ByAdmin:         req.ByAdmin,
	})
	if err != nil {
		h.fail(c, "distance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record updated!"})
}
