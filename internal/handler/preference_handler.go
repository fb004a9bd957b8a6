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

type questionnaireResponse struct {
	Preferences *models.FamilyPreferences `json:"preferences"`
	Features    dto.FeatureVector         `json:"features"`
}

type preferenceManager interface {
	Submit(ctx context.Context, familyID string, req dto.QuestionnaireRequest) (*models.FamilyPreferences, dto.FeatureVector, error)
	Latest(ctx context.Context, familyID string) (*models.FamilyPreferences, error)
}

// PreferenceHandler exposes the onboarding questionnaire endpoints.
type PreferenceHandler struct {
	service preferenceManager
}

// NewPreferenceHandler constructs the handler.
func NewPreferenceHandler(svc *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: svc}
}

// Submit godoc
// @Summary Submit the family preference questionnaire
// @Description Derives the feature vector and supersedes any previous submission.
// @Tags Preferences
// @Accept json
// @Produce json
// @Param familyId path string true "Family ID"
// @Param payload body dto.QuestionnaireRequest true "Questionnaire answers"
// @Success 201 {object} response.Envelope
// @Router /families/{familyId}/preferences [post]
func (h *PreferenceHandler) Submit(c *gin.Context) {
	var req dto.QuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid questionnaire payload"))
		return
	}
	prefs, features, err := h.service.Submit(c.Request.Context(), c.Param("familyId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, questionnaireResponse{Preferences: prefs, Features: features})
}

// Latest godoc
// @Summary Get the family's latest preference submission
// @Tags Preferences
// @Produce json
// @Param familyId path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /families/{familyId}/preferences [get]
func (h *PreferenceHandler) Latest(c *gin.Context) {
	prefs, err := h.service.Latest(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}
