package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/models"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

// CreateChatRoomInput describes the fields accepted when opening a chat room.
type CreateChatRoomInput struct {
	VenueID     string
	Name        string
	MaxCapacity int
	Status      bool
}

// ChatRoomService manages venue chat-room bookkeeping. Message delivery is
// out of scope; only room metadata lives here.
type ChatRoomService struct {
	db *gorm.DB
}

// NewChatRoomService constructs a ChatRoomService.
func NewChatRoomService(db *gorm.DB) (*ChatRoomService, error) {
	if db == nil {
		return nil, errors.New("chat room service: db is required")
	}
	return &ChatRoomService{db: db}, nil
}

// Create opens a chat room for a venue. Admin only.
func (s *ChatRoomService) Create(ctx context.Context, actor *models.User, input CreateChatRoomInput) (*models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	if actor == nil || !actor.IsAdmin {
		return nil, apperrors.ErrForbidden.WithMessage("Only admins can create chat rooms")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if input.MaxCapacity <= 0 || input.MaxCapacity > models.MaxChatRoomCapacity {
		return nil, apperrors.NewBadRequest(
			fmt.Sprintf("max capacity must be between 1 and %d", models.MaxChatRoomCapacity))
	}

	var venue models.Venue
	err := s.db.WithContext(ctx).Where("id = ?", input.VenueID).First(&venue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat room service: fetch venue: %w", err)
	}

	room := &models.ChatRoom{
		VenueID:     venue.ID,
		Name:        name,
		MaxCapacity: input.MaxCapacity,
		Status:      input.Status,
	}

	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a chat room with this name already exists")
		}
		return nil, fmt.Errorf("chat room service: create room: %w", err)
	}
	return room, nil
}

// List returns every chat room, fullest first.
func (s *ChatRoomService) List(ctx context.Context) ([]models.ChatRoom, error) {
	ctx = ensureContext(ctx)

	var rooms []models.ChatRoom
	err := s.db.WithContext(ctx).Order("current_capacity desc").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("chat room service: list rooms: %w", err)
	}
	return rooms, nil
}
