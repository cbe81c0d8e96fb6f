package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/response"
)

// VenueHandler exposes the venue catalogue plus likes and comments.
type VenueHandler struct {
	venues *services.VenueService
}

func NewVenueHandler(venues *services.VenueService) *VenueHandler {
	return &VenueHandler{venues: venues}
}

func (h *VenueHandler) actor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, errors.ErrInvalidCredentials)
		return nil, false
	}
	return user, true
}

type createVenueRequest struct {
	Name           string `json:"name" validate:"required,max=127"`
	Description    string `json:"description" validate:"max=511"`
	VenueType      string `json:"venue_type" validate:"required,max=63"`
	Lat            string `json:"lat" validate:"required"`
	Lng            string `json:"lng" validate:"required"`
	Image1Link     string `json:"image_1_link" validate:"max=511"`
	Image2Link     string `json:"image_2_link" validate:"max=511"`
	Image3Link     string `json:"image_3_link" validate:"max=511"`
	WorkHoursOpen  string `json:"work_hours_open" validate:"required"`
	WorkHoursClose string `json:"work_hours_close" validate:"required"`
}

// POST /api/venues
func (h *VenueHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req createVenueRequest
	if !bindAndValidate(c, &req) {
		return
	}

	venue, err := h.venues.Create(requestContext(c), actor, services.CreateVenueInput{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		VenueType:      req.VenueType,
		Lat:            req.Lat,
		Lng:            req.Lng,
		Image1Link:     req.Image1Link,
		Image2Link:     req.Image2Link,
		Image3Link:     req.Image3Link,
		WorkHoursOpen:  req.WorkHoursOpen,
		WorkHoursClose: req.WorkHoursClose,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, venue)
}

// GET /api/venues
func (h *VenueHandler) List(c *gin.Context) {
	venues, err := h.venues.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, venues)
}

// GET /api/venues/:id
func (h *VenueHandler) Get(c *gin.Context) {
	venue, err := h.venues.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, venue)
}

// POST /api/venues/:id/like
func (h *VenueHandler) Like(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.venues.Like(requestContext(c), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Venue liked"})
}

// DELETE /api/venues/:id/like
func (h *VenueHandler) Unlike(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.venues.Unlike(requestContext(c), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Venue unliked"})
}

// POST /api/venues/:id/comments
func (h *VenueHandler) AddComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.venues.AddComment(requestContext(c), actor.ID, c.Param("id"), strings.TrimSpace(req.Content))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, comment)
}

// GET /api/venues/:id/comments
func (h *VenueHandler) ListComments(c *gin.Context) {
	comments, err := h.venues.ListComments(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, comments)
}

// GET /api/venues/comments/:commentID
func (h *VenueHandler) GetComment(c *gin.Context) {
	comment, err := h.venues.GetComment(requestContext(c), c.Param("commentID"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, comment)
}

// DELETE /api/venues/comments/:commentID
func (h *VenueHandler) DeleteComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.venues.DeleteComment(requestContext(c), actor, c.Param("commentID")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
