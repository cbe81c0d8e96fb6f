package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/models"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/geo"
	"github.com/cultach/cultach-api/pkg/logger"
)

// ErrVenueNotFound indicates the requested venue does not exist.
var ErrVenueNotFound = apperrors.New("VENUE_NOT_FOUND", "Venue not found", 404)

// ErrVenueOutsideRegion rejects venues whose coordinates resolve outside the
// configured country.
var ErrVenueOutsideRegion = apperrors.New("VENUE_OUTSIDE_REGION", "Venue location is outside the supported region", 400)

// CreateVenueInput describes the fields accepted when creating a venue.
type CreateVenueInput struct {
	Name           string
	Description    string
	VenueType      string
	Lat            string
	Lng            string
	Image1Link     string
	Image2Link     string
	Image3Link     string
	WorkHoursOpen  string
	WorkHoursClose string
}

// VenueOption customises the VenueService.
type VenueOption func(*VenueService)

// WithVenueGeocoder enables reverse geocoding of new venue coordinates.
func WithVenueGeocoder(geocoder geo.Geocoder) VenueOption {
	return func(s *VenueService) {
		s.geocoder = geocoder
	}
}

// WithVenueCountry restricts new venues to a single country. Only effective
// when a geocoder is configured.
func WithVenueCountry(country string) VenueOption {
	return func(s *VenueService) {
		s.country = strings.TrimSpace(country)
	}
}

// VenueService manages the venue lifecycle plus likes and comments.
type VenueService struct {
	db       *gorm.DB
	geocoder geo.Geocoder
	country  string
}

// NewVenueService constructs a VenueService.
func NewVenueService(db *gorm.DB, opts ...VenueOption) (*VenueService, error) {
	if db == nil {
		return nil, errors.New("venue service: db is required")
	}
	svc := &VenueService{db: db}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create persists a new venue. Admin only. When a geocoder and country are
// configured the coordinates must reverse-resolve into that country.
func (s *VenueService) Create(ctx context.Context, actor *models.User, input CreateVenueInput) (*models.Venue, error) {
	ctx = ensureContext(ctx)

	if actor == nil || !actor.IsAdmin {
		return nil, apperrors.ErrForbidden.WithMessage("Only admins can create venues")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if !containsString(models.VenueTypes, input.VenueType) {
		return nil, apperrors.NewBadRequest("unknown venue type")
	}
	if strings.TrimSpace(input.Lat) == "" || strings.TrimSpace(input.Lng) == "" {
		return nil, apperrors.NewBadRequest("coordinates are required")
	}

	open, err := parseClock(input.WorkHoursOpen)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid opening time")
	}
	closing, err := parseClock(input.WorkHoursClose)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid closing time")
	}

	if err := s.checkRegion(ctx, input.Lat, input.Lng); err != nil {
		return nil, err
	}

	venue := &models.Venue{
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		VenueType:      input.VenueType,
		Lat:            strings.TrimSpace(input.Lat),
		Lng:            strings.TrimSpace(input.Lng),
		Image1Link:     strings.TrimSpace(input.Image1Link),
		Image2Link:     strings.TrimSpace(input.Image2Link),
		Image3Link:     strings.TrimSpace(input.Image3Link),
		WorkHoursOpen:  open,
		WorkHoursClose: closing,
	}

	if err := s.db.WithContext(ctx).Create(venue).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a venue with this name already exists")
		}
		return nil, fmt.Errorf("venue service: create venue: %w", err)
	}
	return venue, nil
}

// List returns every venue, least liked first.
func (s *VenueService) List(ctx context.Context) ([]models.Venue, error) {
	ctx = ensureContext(ctx)

	var venues []models.Venue
	if err := s.db.WithContext(ctx).Order("num_likes asc").Find(&venues).Error; err != nil {
		return nil, fmt.Errorf("venue service: list venues: %w", err)
	}
	return venues, nil
}

// Get fetches a single venue.
func (s *VenueService) Get(ctx context.Context, venueID string) (*models.Venue, error) {
	ctx = ensureContext(ctx)

	var venue models.Venue
	err := s.db.WithContext(ctx).Where("id = ?", venueID).First(&venue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("venue service: fetch venue: %w", err)
	}
	return &venue, nil
}

// Like records a like and bumps the denormalised counter.
func (s *VenueService) Like(ctx context.Context, userID, venueID string) error {
	ctx = ensureContext(ctx)

	venue, err := s.Get(ctx, venueID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.VenueLike{}).
		Where("owner_id = ? AND venue_id = ?", userID, venueID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("venue service: check like: %w", err)
	}
	if count > 0 {
		return apperrors.NewBadRequest("venue already liked")
	}

	like := &models.VenueLike{
		LikeFields: models.LikeFields{OwnerID: userID},
		VenueID:    venueID,
	}
	if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
		return fmt.Errorf("venue service: create like: %w", err)
	}

	return s.db.WithContext(ctx).Model(&models.Venue{}).
		Where("id = ?", venueID).
		Update("num_likes", venue.NumLikes+1).Error
}

// Unlike removes a like and decrements the counter, clamping at zero.
func (s *VenueService) Unlike(ctx context.Context, userID, venueID string) error {
	ctx = ensureContext(ctx)

	venue, err := s.Get(ctx, venueID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("owner_id = ? AND venue_id = ?", userID, venueID).
		Delete(&models.VenueLike{})
	if result.Error != nil {
		return fmt.Errorf("venue service: delete like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewBadRequest("venue not liked")
	}

	next := venue.NumLikes - 1
	if next < 0 {
		next = 0
	}
	return s.db.WithContext(ctx).Model(&models.Venue{}).
		Where("id = ?", venueID).
		Update("num_likes", next).Error
}

// AddComment attaches a comment to a venue.
func (s *VenueService) AddComment(ctx context.Context, userID, venueID, content string) (*models.VenueComment, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("comment content is required")
	}
	if _, err := s.Get(ctx, venueID); err != nil {
		return nil, err
	}

	comment := &models.VenueComment{
		CommentFields: models.CommentFields{OwnerID: userID, Content: content},
		VenueID:       venueID,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("venue service: create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns every comment on a venue, oldest first.
func (s *VenueService) ListComments(ctx context.Context, venueID string) ([]models.VenueComment, error) {
	ctx = ensureContext(ctx)

	var comments []models.VenueComment
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("venue_id = ?", venueID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("venue service: list comments: %w", err)
	}
	return comments, nil
}

// GetComment fetches a single comment.
func (s *VenueService) GetComment(ctx context.Context, commentID string) (*models.VenueComment, error) {
	ctx = ensureContext(ctx)

	var comment models.VenueComment
	err := s.db.WithContext(ctx).Preload("Owner").Where("id = ?", commentID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage("Comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("venue service: fetch comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment owned by the actor (admins may remove any).
func (s *VenueService) DeleteComment(ctx context.Context, actor *models.User, commentID string) error {
	ctx = ensureContext(ctx)

	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if actor == nil || (comment.OwnerID != actor.ID && !actor.IsAdmin) {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Delete(&models.VenueComment{}, "id = ?", comment.ID).Error
}

func (s *VenueService) checkRegion(ctx context.Context, lat, lng string) error {
	if s.geocoder == nil || s.country == "" {
		return nil
	}

	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return apperrors.NewBadRequest("invalid latitude")
	}
	lngF, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return apperrors.NewBadRequest("invalid longitude")
	}

	place, err := s.geocoder.Reverse(ctx, latF, lngF)
	if errors.Is(err, geo.ErrNotFound) {
		return ErrVenueOutsideRegion
	}
	if err != nil {
		// Geocoding is advisory; an outage must not block venue creation.
		logger.Warn("reverse geocoding failed", zap.Error(err))
		return nil
	}

	if !strings.EqualFold(place.Country, s.country) {
		return ErrVenueOutsideRegion
	}
	return nil
}
