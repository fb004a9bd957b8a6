package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	"github.com/brightpath-app/scheduling-api/internal/service"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
	"github.com/brightpath-app/scheduling-api/pkg/response"
)

type activityRecorder interface {
	Complete(ctx context.Context, itemID string, req dto.CompleteItemRequest) (*models.ScheduleItem, error)
	Reschedule(ctx context.Context, itemID string, req dto.RescheduleItemRequest) (*models.ScheduleItem, error)
	Skip(ctx context.Context, itemID string) error
	History(ctx context.Context, scheduleID string) ([]models.ActivityLog, error)
}

// ActivityHandler exposes schedule-item outcome endpoints.
type ActivityHandler struct {
	service activityRecorder
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// Complete godoc
// @Summary Mark a schedule item completed
// @Tags Activity
// @Accept json
// @Produce json
// @Param id path string true "Schedule item ID"
// @Param payload body dto.CompleteItemRequest false "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /schedule-items/{id}/complete [post]
func (h *ActivityHandler) Complete(c *gin.Context) {
	var req dto.CompleteItemRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
			return
		}
	}
	item, err := h.service.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reschedule godoc
// @Summary Move a schedule item to a new slot
// @Description The original item is superseded, never mutated; overlapping moves are rejected.
// @Tags Activity
// @Accept json
// @Produce json
// @Param id path string true "Schedule item ID"
// @Param payload body dto.RescheduleItemRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedule-items/{id}/reschedule [post]
func (h *ActivityHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	item, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Skip godoc
// @Summary Record a schedule item as skipped
// @Tags Activity
// @Param id path string true "Schedule item ID"
// @Success 204
// @Router /schedule-items/{id}/skip [post]
func (h *ActivityHandler) Skip(c *gin.Context) {
	if err := h.service.Skip(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Get the outcome log of a schedule
// @Tags Activity
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/activity [get]
func (h *ActivityHandler) History(c *gin.Context) {
	logs, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
