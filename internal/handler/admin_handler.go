package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/internal/repository"
	"github.com/noah-isme/campus-scheduler/internal/service"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
	"github.com/noah-isme/campus-scheduler/pkg/response"
)

// AdminHandler exposes the admin.* namespace: the global coordinator
// dashboard, conflict detection and synchronization, shared-resource
// lookup, bulk regeneration, department priorities and the async
// utilization/conflict report pipeline. Every route here requires the
// admin role; registration lives alongside dept.* in the router.
type AdminHandler struct {
	admin    *service.AdminService
	reports  *service.ReportService
	exporter *service.ExportService
	settings *repository.CoordinatorSettingsRepository
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(admin *service.AdminService, reports *service.ReportService, exporter *service.ExportService, settings *repository.CoordinatorSettingsRepository) *AdminHandler {
	return &AdminHandler{admin: admin, reports: reports, exporter: exporter, settings: settings}
}

// Dashboard handles admin.dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	view, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Departments handles admin.departments.list.
func (h *AdminHandler) Departments(c *gin.Context) {
	departments, err := h.admin.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// InitializeScheduler handles admin.scheduler.initialize: loads every
// department's reserved slots into the in-memory global index.
func (h *AdminHandler) InitializeScheduler(c *gin.Context) {
	if err := h.admin.InitializeScheduler(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"initialized": true}, nil)
}

type detectConflictsRequest struct {
	Departments []string `json:"departments"`
}

// DetectConflicts handles admin.conflicts.detect.
func (h *AdminHandler) DetectConflicts(c *gin.Context) {
	var req detectConflictsRequest
	_ = c.ShouldBindJSON(&req)
	conflicts, err := h.admin.DetectConflicts(c.Request.Context(), req.Departments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

type synchronizeRequest struct {
	Departments []string `json:"departments" validate:"required,min=2"`
}

// Synchronize handles admin.synchronize.
func (h *AdminHandler) Synchronize(c *gin.Context) {
	var req synchronizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.admin.Synchronize(c.Request.Context(), req.Departments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// GlobalSlots handles admin.slots.list.
func (h *AdminHandler) GlobalSlots(c *gin.Context) {
	slots, err := h.admin.GlobalSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

type reserveSlotsRequest struct {
	Department  string   `json:"department" validate:"required"`
	TimetableID string   `json:"timetable_id" validate:"required"`
	SlotIDs     []string `json:"slot_ids" validate:"required"`
}

// ReserveSlots handles admin.slots.reserve.
func (h *AdminHandler) ReserveSlots(c *gin.Context) {
	var req reserveSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.ReserveSlots(c.Request.Context(), req.Department, req.TimetableID, req.SlotIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"reserved": len(req.SlotIDs)}, nil)
}

type releaseSlotsRequest struct {
	Department  string `json:"department" validate:"required"`
	TimetableID string `json:"timetable_id" validate:"required"`
}

// ReleaseSlots handles admin.slots.release.
func (h *AdminHandler) ReleaseSlots(c *gin.Context) {
	var req releaseSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.ReleaseSlots(c.Request.Context(), req.Department, req.TimetableID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"released": true}, nil)
}

// SharedResources handles admin.resources.shared.list.
func (h *AdminHandler) SharedResources(c *gin.Context) {
	query := service.SharedResourceQuery{
		RoomType: models.RoomType(c.Query("room_type")),
	}
	if raw := c.Query("day"); raw != "" {
		if day, err := strconv.Atoi(raw); err == nil {
			query.Day = &day
		}
	}
	if raw := c.Query("start_slot"); raw != "" {
		query.StartSlot, _ = strconv.Atoi(raw)
	}
	if raw := c.Query("end_slot"); raw != "" {
		query.EndSlot, _ = strconv.Atoi(raw)
	} else {
		query.EndSlot = models.SlotsPerDay
	}
	resources, err := h.admin.SharedResources(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources, nil)
}

// ValidateConsistency handles admin.validate.
func (h *AdminHandler) ValidateConsistency(c *gin.Context) {
	ok, issues, err := h.admin.ValidateGlobalConsistency(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"consistent": ok, "issues": issues}, nil)
}

type bulkRegenerateRequest struct {
	Departments []string `json:"departments" validate:"required"`
	Force       bool     `json:"force"`
}

// BulkRegenerate handles admin.timetables.bulk_regenerate.
func (h *AdminHandler) BulkRegenerate(c *gin.Context) {
	var req bulkRegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.admin.BulkRegenerate(c.Request.Context(), req.Departments, req.Force)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// ListPriorities handles admin.priorities.list.
func (h *AdminHandler) ListPriorities(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

type setPriorityRequest struct {
	Department string `json:"department" validate:"required"`
	Priority   int    `json:"priority" validate:"required"`
}

// SetPriority handles admin.priorities.set: persists a department's
// position in the coordinator's tie-break order.
func (h *AdminHandler) SetPriority(c *gin.Context) {
	var req setPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	setting := &models.CoordinatorSetting{
		Department: req.Department,
		Priority:   req.Priority,
		UpdatedBy:  &claims.UserID,
	}
	if err := h.settings.Upsert(c.Request.Context(), setting); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

func (h *AdminHandler) actor(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

type createReportRequest struct {
	Type        models.ReportType   `json:"type" validate:"required"`
	Department  string              `json:"department"`
	TimetableID string              `json:"timetable_id"`
	Format      models.ReportFormat `json:"format" validate:"required"`
}

// CreateReport handles admin.reports.utilization and
// admin.reports.conflicts, distinguished by the type field.
func (h *AdminHandler) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	handle, err := h.reports.CreateJob(c.Request.Context(), service.ReportRequest{
		Type:        req.Type,
		Department:  req.Department,
		TimetableID: req.TimetableID,
		Format:      req.Format,
	}, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, handle, nil)
}

// ReportStatus handles admin.reports.status.
func (h *AdminHandler) ReportStatus(c *gin.Context) {
	status, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// DownloadReport handles admin.reports.download: serves the rendered
// file behind a signed, time-limited token.
func (h *AdminHandler) DownloadReport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.reports.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Open(download.RelativePath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export"))
		return
	}
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export metadata"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeForReportFormat(download.Format), file, nil)
}

func mimeForReportFormat(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}
