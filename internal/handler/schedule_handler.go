package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/service"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
	"github.com/brightpath-app/scheduling-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, childID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Active(ctx context.Context, childID, weekStart string) (*dto.ActiveScheduleResponse, error)
	Items(ctx context.Context, scheduleID string) (*dto.ActiveScheduleResponse, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, childID, weekStart, format string) (*dto.ExportScheduleResponse, error)
	Open(token string) (*os.File, error)
}

// ScheduleHandler exposes schedule generation, the active week view and
// printable exports.
type ScheduleHandler struct {
	generator scheduleGenerator
	exporter  scheduleExporter
}

// NewScheduleHandler constructs the handler. The exporter may be nil when
// exports are disabled.
func NewScheduleHandler(generator *service.GeneratorService, exporter *service.ExportService) *ScheduleHandler {
	h := &ScheduleHandler{generator: generator}
	if exporter != nil {
		h.exporter = exporter
	}
	return h
}

// Generate godoc
// @Summary Generate a new weekly schedule for a child
// @Description Supersedes the previous active schedule for the week; concurrent regenerations lose with 409 REGENERATION_RACE.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param payload body dto.GenerateScheduleRequest true "Generate payload"
// @Success 201 {object} response.Envelope
// @Router /children/{childId}/schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), c.Param("childId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Active godoc
// @Summary Get the active schedule for a child and week
// @Tags Schedules
// @Produce json
// @Param childId path string true "Child ID"
// @Param weekStart query string true "Monday of the target week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/schedule/active [get]
func (h *ScheduleHandler) Active(c *gin.Context) {
	weekStart := c.Query("weekStart")
	if weekStart == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "weekStart is required"))
		return
	}
	result, err := h.generator.Active(c.Request.Context(), c.Param("childId"), weekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Items godoc
// @Summary Get a schedule version with its items
// @Description Works for superseded versions as well as the active one.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/items [get]
func (h *ScheduleHandler) Items(c *gin.Context) {
	result, err := h.generator.Items(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Render the active week as a printable file
// @Tags Schedules
// @Produce json
// @Param childId path string true "Child ID"
// @Param weekStart query string true "Monday of the target week (YYYY-MM-DD)"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("childId"), c.Query("weekStart"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered export by signed token
// @Tags Schedules
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /exports/{token} [get]
func (h *ScheduleHandler) Download(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	file, err := h.exporter.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	c.FileAttachment(file.Name(), filepath.Base(file.Name()))
}
