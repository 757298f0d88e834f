package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler/internal/middleware"
	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/internal/service"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
	"github.com/noah-isme/campus-scheduler/pkg/response"
)

// DeptHandler exposes the dept.* namespace: department-scoped CRUD over
// sections, teachers, courses, classrooms, assignments and rules, plus
// the timetable generation workflow that consumes them. A dept_head is
// pinned to their own department by middleware.EffectiveDepartment; an
// admin must name one explicitly via the department query/body field.
type DeptHandler struct {
	sections    *service.SectionService
	teachers    *service.TeacherService
	courses     *service.CourseService
	classrooms  *service.ClassroomService
	assignments *service.AssignmentService
	rules       *service.RuleService
	timetables  *service.DeptTimetableService
}

// NewDeptHandler constructs a dept handler.
func NewDeptHandler(
	sections *service.SectionService,
	teachers *service.TeacherService,
	courses *service.CourseService,
	classrooms *service.ClassroomService,
	assignments *service.AssignmentService,
	rules *service.RuleService,
	timetables *service.DeptTimetableService,
) *DeptHandler {
	return &DeptHandler{
		sections:    sections,
		teachers:    teachers,
		courses:     courses,
		classrooms:  classrooms,
		assignments: assignments,
		rules:       rules,
		timetables:  timetables,
	}
}

func pagingFromQuery(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		pageSize = v
	}
	return page, pageSize
}

func (h *DeptHandler) effectiveDepartment(c *gin.Context) (string, bool) {
	department, err := middleware.EffectiveDepartment(c, c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return department, true
}

func (h *DeptHandler) actor(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// ListSections handles dept.sections.list.
func (h *DeptHandler) ListSections(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.SectionFilter{
		Department: department,
		Owner:      c.Query("owner"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	sections, pagination, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// CreateSections handles dept.sections.step1 (bulk create, skip-on-duplicate).
func (h *DeptHandler) CreateSections(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sections.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListTeachers handles dept.teachers.list.
func (h *DeptHandler) ListTeachers(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.TeacherFilter{
		Department: department,
		Owner:      c.Query("owner"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	teachers, pagination, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// CreateTeachers handles dept.teachers.step2.
func (h *DeptHandler) CreateTeachers(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateTeachersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.teachers.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListCourses handles dept.courses.list.
func (h *DeptHandler) ListCourses(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.CourseFilter{
		Department: department,
		Owner:      c.Query("owner"),
		CourseType: c.Query("course_type"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// CreateCourses handles dept.courses.step3.
func (h *DeptHandler) CreateCourses(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.courses.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListClassrooms handles dept.classrooms.list.
func (h *DeptHandler) ListClassrooms(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.ClassroomFilter{
		Department: department,
		Owner:      c.Query("owner"),
		RoomType:   c.Query("room_type"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	classrooms, pagination, err := h.classrooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination)
}

// CreateClassrooms handles dept.classrooms.step4.
func (h *DeptHandler) CreateClassrooms(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateClassroomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.classrooms.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListAssignments handles dept.assignments.list.
func (h *DeptHandler) ListAssignments(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.AssignmentFilter{
		Department: department,
		Owner:      c.Query("owner"),
		SectionID:  c.Query("section_id"),
		TeacherID:  c.Query("teacher_id"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	assignments, pagination, err := h.assignments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// CreateAssignments handles dept.assignments.step5.
func (h *DeptHandler) CreateAssignments(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListRules handles dept.rules.list.
func (h *DeptHandler) ListRules(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.RuleFilter{
		Department: department,
		Owner:      c.Query("owner"),
		Type:       c.Query("type"),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	rules, pagination, err := h.rules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, pagination)
}

// CreateRules handles dept.rules.step6.
func (h *DeptHandler) CreateRules(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.CreateRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.rules.CreateBatch(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListTimetables handles dept.timetables.list.
func (h *DeptHandler) ListTimetables(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	page, pageSize := pagingFromQuery(c)
	filter := models.DeptTimetableFilter{
		Department: department,
		Owner:      c.Query("owner"),
		Status:     c.Query("status"),
		Page:       page,
		PageSize:   pageSize,
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	timetables, pagination, err := h.timetables.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables, pagination)
}

// GenerateTimetable handles dept.timetables.step7: runs the solver over
// everything entered in steps 1-6 and reserves the result against the
// global coordinator.
func (h *DeptHandler) GenerateTimetable(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	claims, ok := h.actor(c)
	if !ok {
		return
	}
	var req service.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.timetables.Generate(c.Request.Context(), department, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// TimetableResults handles dept.timetables.results: the materialized
// weekly grid for one completed run.
func (h *DeptHandler) TimetableResults(c *gin.Context) {
	department, ok := h.effectiveDepartment(c)
	if !ok {
		return
	}
	timetable, slots, err := h.timetables.Results(c.Request.Context(), department, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"timetable": timetable, "slots": slots}, nil)
}
