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

type feedbackIngestor interface {
	Ingest(ctx context.Context, scheduleID string, req dto.SubmitFeedbackRequest) (*models.Feedback, error)
	Retrain(ctx context.Context) error
}

type evaluatorAdmin interface {
	Models(ctx context.Context) ([]models.EvaluatorModel, error)
	Activate(ctx context.Context, id string) error
}

// FeedbackHandler exposes feedback ingestion and evaluator administration.
type FeedbackHandler struct {
	feedback  feedbackIngestor
	evaluator evaluatorAdmin
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(feedback *service.FeedbackService, evaluator *service.EvaluatorService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, evaluator: evaluator}
}

// Submit godoc
// @Summary Submit feedback for a schedule
// @Description Adjustment flags are derived from the schedule's activity history. Repeat submissions are retained.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req dto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	record, err := h.feedback.Ingest(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Retrain godoc
// @Summary Trigger an evaluator retraining run
// @Description Runs synchronously; fails when the feedback history is too small.
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluator/retrain [post]
func (h *FeedbackHandler) Retrain(c *gin.Context) {
	if err := h.feedback.Retrain(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "retrained"}, nil)
}

// Models godoc
// @Summary List evaluator model versions
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluator/models [get]
func (h *FeedbackHandler) Models(c *gin.Context) {
	versions, err := h.evaluator.Models(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// ActivateModel godoc
// @Summary Activate an evaluator model version
// @Description Rollback path: any retained version can be made active again.
// @Tags Feedback
// @Produce json
// @Param id path string true "Model ID"
// @Success 200 {object} response.Envelope
// @Router /evaluator/models/{id}/activate [post]
func (h *FeedbackHandler) ActivateModel(c *gin.Context) {
	if err := h.evaluator.Activate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "activated"}, nil)
}
