package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/middleware"
	"github.com/noah-isme/timetable-engine/internal/service"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/response"
)

type timetableEngine interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, bool, error)
	CreateJob(ctx context.Context, req dto.SolveRequest, actorID string) (*dto.TimetableJobResponse, error)
	CreateTermJob(ctx context.Context, termID string, req dto.TermJobRequest, actorID string) (*dto.TimetableJobResponse, error)
	GetJob(ctx context.Context, id string) (*dto.TimetableJobResponse, error)
	Assignments(ctx context.Context, id string) ([]dto.AssignmentResponse, error)
	Export(ctx context.Context, id string, query dto.ExportQuery) (*service.ExportFile, error)
}

// TimetableHandler exposes solve and timetable job endpoints.
type TimetableHandler struct {
	service timetableEngine
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Solve godoc
// @Summary Generate and optimize a timetable synchronously
// @Description Infeasible problems return success=false with the unplaced sessions.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Scheduling problem"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/solve [post]
func (h *TimetableHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	result, cacheHit, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// CreateJob godoc
// @Summary Queue a timetable job
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Scheduling problem"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timetable-jobs [post]
func (h *TimetableHandler) CreateJob(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid job payload"))
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// CreateTermJob godoc
// @Summary Queue a timetable job from stored term data
// @Tags Timetables
// @Accept json
// @Produce json
// @Param termId path string true "Term ID"
// @Param payload body dto.TermJobRequest false "Run options"
// @Success 202 {object} response.Envelope
// @Router /terms/{termId}/timetable-jobs [post]
func (h *TimetableHandler) CreateTermJob(c *gin.Context) {
	var req dto.TermJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid job options"))
			return
		}
	}
	job, err := h.service.CreateTermJob(c.Request.Context(), c.Param("termId"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetJob godoc
// @Summary Timetable job status and progress
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable-jobs/{id} [get]
func (h *TimetableHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Assignments godoc
// @Summary Assignments of a completed timetable job
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable-jobs/{id}/assignments [get]
func (h *TimetableHandler) Assignments(c *gin.Context) {
	assignments, err := h.service.Assignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Export godoc
// @Summary Download a completed timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Job ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /timetable-jobs/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
