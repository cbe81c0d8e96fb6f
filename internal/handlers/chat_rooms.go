package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cultach/cultach-api/internal/middleware"
	"github.com/cultach/cultach-api/internal/services"
	"github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/response"
)

// ChatRoomHandler exposes venue chat-room metadata.
type ChatRoomHandler struct {
	rooms *services.ChatRoomService
}

func NewChatRoomHandler(rooms *services.ChatRoomService) *ChatRoomHandler {
	return &ChatRoomHandler{rooms: rooms}
}

type createChatRoomRequest struct {
	VenueID     string `json:"venue_id" validate:"required,uuid4"`
	Name        string `json:"name" validate:"required,max=255"`
	MaxCapacity int    `json:"max_capacity" validate:"required"`
	Status      bool   `json:"status"`
}

// POST /api/chat-rooms
func (h *ChatRoomHandler) Create(c *gin.Context) {
	actor, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	var req createChatRoomRequest
	if !bindAndValidate(c, &req) {
		return
	}

	room, err := h.rooms.Create(requestContext(c), actor, services.CreateChatRoomInput{
		VenueID:     req.VenueID,
		Name:        strings.TrimSpace(req.Name),
		MaxCapacity: req.MaxCapacity,
		Status:      req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, room)
}

// GET /api/chat-rooms
func (h *ChatRoomHandler) List(c *gin.Context) {
	rooms, err := h.rooms.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, rooms)
}
