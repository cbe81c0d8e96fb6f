package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/response"
)

const dateLayout = "2006-01-02"

// EventHandler exposes the event lifecycle plus likes, comments and search.
// Listing goes through the read-through cache. Only create, update and delete
// evict it; likes and comments ride out the accepted staleness window.
type EventHandler struct {
	events *services.EventService
	cache  *services.EventCacheService
}

func NewEventHandler(events *services.EventService, cache *services.EventCacheService) *EventHandler {
	return &EventHandler{events: events, cache: cache}
}

func (h *EventHandler) actor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, errors.ErrInvalidCredentials)
		return nil, false
	}
	return user, true
}

func (h *EventHandler) evict(c *gin.Context) {
	// Best effort: a failed eviction only delays freshness until the next
	// cache rebuild.
	_ = h.cache.Evict(requestContext(c))
}

type createEventRequest struct {
	Title           string `json:"title" validate:"required,max=127"`
	Description     string `json:"description" validate:"max=511"`
	Date            string `json:"date" validate:"required"`
	VenueID         string `json:"venue_id" validate:"required,uuid4"`
	EventType       string `json:"event_type" validate:"required,max=63"`
	PosterImageLink string `json:"poster_image_link" validate:"required,max=511"`
	Start           string `json:"start" validate:"required"`
	Finish          string `json:"finish" validate:"required"`
}

// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req createEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.Error(c, errors.NewBadRequest("date must be formatted as YYYY-MM-DD"))
		return
	}

	event, err := h.events.Create(requestContext(c), actor, services.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            date,
		VenueID:         req.VenueID,
		EventType:       req.EventType,
		PosterImageLink: req.PosterImageLink,
		Start:           req.Start,
		Finish:          req.Finish,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.evict(c)
	response.Success(c, http.StatusCreated, event)
}

// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.cache.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, events)
}

// GET /api/events/search?q=
func (h *EventHandler) Search(c *gin.Context) {
	results, err := h.events.Search(requestContext(c), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, results)
}

// GET /api/events/favorites
func (h *EventHandler) Favorites(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	favorites, err := h.events.Favorites(requestContext(c), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, favorites)
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, event)
}

type updateEventRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=127"`
	Description     *string `json:"description" validate:"omitempty,max=511"`
	Date            *string `json:"date"`
	EventType       *string `json:"event_type" validate:"omitempty,max=63"`
	PosterImageLink *string `json:"poster_image_link" validate:"omitempty,max=511"`
	Start           *string `json:"start"`
	Finish          *string `json:"finish"`
}

// PATCH /api/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req updateEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		EventType:       req.EventType,
		PosterImageLink: req.PosterImageLink,
		Start:           req.Start,
		Finish:          req.Finish,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			response.Error(c, errors.NewBadRequest("date must be formatted as YYYY-MM-DD"))
			return
		}
		input.Date = &date
	}

	event, err := h.events.Update(requestContext(c), actor, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.evict(c)
	response.Success(c, http.StatusOK, event)
}

// DELETE /api/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.events.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	h.evict(c)
	response.NoContent(c)
}

// POST /api/events/:id/like
func (h *EventHandler) Like(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.events.Like(requestContext(c), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Event liked"})
}

// DELETE /api/events/:id/like
func (h *EventHandler) Unlike(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.events.Unlike(requestContext(c), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Event unliked"})
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=511"`
}

// POST /api/events/:id/comments
func (h *EventHandler) AddComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.events.AddComment(requestContext(c), actor.ID, c.Param("id"), strings.TrimSpace(req.Content))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, comment)
}

// GET /api/events/:id/comments
func (h *EventHandler) ListComments(c *gin.Context) {
	comments, err := h.events.ListComments(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, comments)
}

// GET /api/events/comments/:commentID
func (h *EventHandler) GetComment(c *gin.Context) {
	comment, err := h.events.GetComment(requestContext(c), c.Param("commentID"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, comment)
}

// DELETE /api/events/comments/:commentID
func (h *EventHandler) DeleteComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.events.DeleteComment(requestContext(c), actor, c.Param("commentID")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
