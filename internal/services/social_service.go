package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/pkg/crypto"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/metrics"
)

// SocialLoginInput carries the verified identity handed over by an OAuth callback.
type SocialLoginInput struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
}

// SocialService signs users in through external identity providers. Accounts
// it creates are verified immediately; their stored password is a secret
// derived from the provider and external id, never shown to anybody.
type SocialService struct {
	db     *gorm.DB
	tokens *auth.TokenService
}

// NewSocialService constructs a SocialService.
func NewSocialService(db *gorm.DB, tokens *auth.TokenService) (*SocialService, error) {
	if db == nil {
		return nil, errors.New("social service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("social service: token service is required")
	}
	return &SocialService{db: db, tokens: tokens}, nil
}

// SocialLogin matches the external identity to a local account, creating one
// on first contact, and issues the usual token pair.
func (s *SocialService) SocialLogin(ctx context.Context, input SocialLoginInput) (*TokenPair, error) {
	ctx = ensureContext(ctx)

	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	email := normaliseEmail(input.Email)
	if provider == "" || strings.TrimSpace(input.ExternalID) == "" || email == "" {
		return nil, apperrors.NewBadRequest("provider, external id and email are required")
	}

	secret := crypto.DeriveSocialSecret(provider, input.ExternalID)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Provider != provider {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidProvider
		}
		if !crypto.VerifyPassword(user.Password, secret) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, createErr := s.createAccount(ctx, input, provider, email, secret)
		if createErr != nil {
			return nil, createErr
		}
		user = *created
	default:
		return nil, fmt.Errorf("social service: fetch user: %w", err)
	}

	access, err := s.tokens.GenerateAccessToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("social service: issue access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("social service: issue refresh token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *SocialService) createAccount(ctx context.Context, input SocialLoginInput, provider, email, secret string) (*models.User, error) {
	username := deriveUsername(input.DisplayName, email)
	if username == "" {
		return nil, apperrors.NewBadRequest("could not derive a username")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("social service: check collision: %w", err)
	}
	if count > 0 {
		return nil, apperrors.ErrAccountCollision
	}

	hashed, err := crypto.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("social service: hash derived secret: %w", err)
	}

	externalID := strings.TrimSpace(input.ExternalID)
	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   hashed,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Provider:   provider,
		SocialID:   &externalID,
		IsVerified: true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrAccountCollision.WithInternal(err)
		}
		return nil, fmt.Errorf("social service: create user: %w", err)
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	return user, nil
}

// deriveUsername prefers a squashed display name and falls back to the local
// part of the email address.
func deriveUsername(displayName, email string) string {
	name := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	if name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}
