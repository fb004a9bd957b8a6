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

type profileManager interface {
	CreateChild(ctx context.Context, familyID string, req dto.CreateChildRequest) (*models.ChildProfile, error)
	GetChild(ctx context.Context, id string) (*models.ChildProfile, error)
	UpdateChild(ctx context.Context, id string, req dto.CreateChildRequest) (*models.ChildProfile, error)
	CreateSubject(ctx context.Context, childID string, req dto.CreateSubjectRequest) (*models.Subject, error)
	ListSubjects(ctx context.Context, childID string) ([]models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
	CreateCommitment(ctx context.Context, familyID string, req dto.CreateCommitmentRequest) (*models.Commitment, error)
	ListCommitments(ctx context.Context, familyID, childID string) ([]models.Commitment, error)
	DeleteCommitment(ctx context.Context, id string) error
}

// ProfileHandler exposes onboarding endpoints: children, subjects, commitments.
type ProfileHandler struct {
	service profileManager
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// CreateChild godoc
// @Summary Register a child profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param familyId path string true "Family ID"
// @Param payload body dto.CreateChildRequest true "Child payload"
// @Success 201 {object} response.Envelope
// @Router /families/{familyId}/children [post]
func (h *ProfileHandler) CreateChild(c *gin.Context) {
	var req dto.CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}
	child, err := h.service.CreateChild(c.Request.Context(), c.Param("familyId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, child)
}

// GetChild godoc
// @Summary Get a child profile
// @Tags Profiles
// @Produce json
// @Param childId path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{childId} [get]
func (h *ProfileHandler) GetChild(c *gin.Context) {
	child, err := h.service.GetChild(c.Request.Context(), c.Param("childId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// UpdateChild godoc
// @Summary Update a child profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param payload body dto.CreateChildRequest true "Child payload"
// @Success 200 {object} response.Envelope
// @Router /children/{childId} [put]
func (h *ProfileHandler) UpdateChild(c *gin.Context) {
	var req dto.CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}
	child, err := h.service.UpdateChild(c.Request.Context(), c.Param("childId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// CreateSubject godoc
// @Summary Add a subject under a child
// @Tags Profiles
// @Accept json
// @Produce json
// @Param childId path string true "Child ID"
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /children/{childId}/subjects [post]
func (h *ProfileHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}
	subject, err := h.service.CreateSubject(c.Request.Context(), c.Param("childId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ListSubjects godoc
// @Summary List a child's subjects
// @Tags Profiles
// @Produce json
// @Param childId path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{childId}/subjects [get]
func (h *ProfileHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context(), c.Param("childId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// DeleteSubject godoc
// @Summary Remove a subject
// @Tags Profiles
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *ProfileHandler) DeleteSubject(c *gin.Context) {
	if err := h.service.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateCommitment godoc
// @Summary Add a family or child commitment
// @Tags Profiles
// @Accept json
// @Produce json
// @Param familyId path string true "Family ID"
// @Param payload body dto.CreateCommitmentRequest true "Commitment payload"
// @Success 201 {object} response.Envelope
// @Router /families/{familyId}/commitments [post]
func (h *ProfileHandler) CreateCommitment(c *gin.Context) {
	var req dto.CreateCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid commitment payload"))
		return
	}
	commitment, err := h.service.CreateCommitment(c.Request.Context(), c.Param("familyId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, commitment)
}

// ListCommitments godoc
// @Summary List commitments relevant to a child
// @Tags Profiles
// @Produce json
// @Param familyId path string true "Family ID"
// @Param childId query string false "Child ID"
// @Success 200 {object} response.Envelope
// @Router /families/{familyId}/commitments [get]
func (h *ProfileHandler) ListCommitments(c *gin.Context) {
	commitments, err := h.service.ListCommitments(c.Request.Context(), c.Param("familyId"), c.Query("childId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commitments, nil)
}

// DeleteCommitment godoc
// @Summary Remove a commitment
// @Tags Profiles
// @Param id path string true "Commitment ID"
// @Success 204
// @Router /commitments/{id} [delete]
func (h *ProfileHandler) DeleteCommitment(c *gin.Context) {
	if err := h.service.DeleteCommitment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
