package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultach/cultach-api/internal/auth"
	"github.com/cultach/cultach-api/internal/models"
	"github.com/cultach/cultach-api/pkg/crypto"
	apperrors "github.com/cultach/cultach-api/pkg/errors"
	"github.com/cultach/cultach-api/pkg/logger"
	"github.com/cultach/cultach-api/pkg/mail"
	"github.com/cultach/cultach-api/pkg/metrics"
)

// TokenPair is the credential bundle returned by login-shaped operations.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RegisterInput describes the fields accepted when registering an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	IsOrganizer bool
}

// CurrentUser is the introspection payload for an authenticated account.
type CurrentUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsOrganizer bool   `json:"is_organizer"`
	IsAdmin     bool   `json:"is_admin"`
	IsVerified  bool   `json:"is_verified"`
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountBaseURL sets the base URL embedded in verification and reset links.
func WithAccountBaseURL(url string) AccountOption {
	return func(s *AccountService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AccountService owns the local account lifecycle: registration, email
// verification, login, token refresh and password reset.
//
// Accounts move unregistered -> pending verification -> verified. Social
// accounts are created verified and never pass through this service's
// registration path.
type AccountService struct {
	db           *gorm.DB
	tokens       *auth.TokenService
	actionTokens *auth.ActionTokenService
	mailer       mail.Mailer
	baseURL      string
	now          func() time.Time
}

// NewAccountService constructs an AccountService with the provided collaborators.
func NewAccountService(db *gorm.DB, tokens *auth.TokenService, actionTokens *auth.ActionTokenService, mailer mail.Mailer, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: token service is required")
	}
	if actionTokens == nil {
		return nil, errors.New("account service: action token service is required")
	}
	if mailer == nil {
		return nil, errors.New("account service: mailer is required")
	}

	svc := &AccountService{
		db:           db,
		tokens:       tokens,
		actionTokens: actionTokens,
		mailer:       mailer,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register provisions a pending-verification account. The verification mail is
// sent before the row is committed: if delivery fails no account exists, so a
// user can simply retry with the same details.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := normaliseEmail(input.Email)
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	// Duplicate checks run independently so the caller learns which field collided.
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account service: check username: %w", err)
	}
	if count > 0 {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrDuplicateUsername
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account service: check email: %w", err)
	}
	if count > 0 {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrDuplicateEmail
	}

	if err := auth.ValidatePasswordPolicy(input.Password); err != nil {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	if err := s.sendVerificationMail(ctx, email); err != nil {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		IsOrganizer: input.IsOrganizer,
		Provider:    models.ProviderLocal,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.Registrations.WithLabelValues("rejected").Inc()
			return nil, s.duplicateFieldError(ctx, email, err)
		}
		return nil, fmt.Errorf("account service: create user: %w", err)
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	return user, nil
}

// duplicateFieldError resolves which unique constraint fired when an insert
// loses the race against a concurrent registration. The pre-insert checks
// have already passed, so re-checking the email distinguishes the two.
func (s *AccountService) duplicateFieldError(ctx context.Context, email string, cause error) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err == nil && count > 0 {
		return apperrors.ErrDuplicateEmail.WithInternal(cause)
	}
	return apperrors.ErrDuplicateUsername.WithInternal(cause)
}

// Login authenticates a local account. Unknown usernames, wrong passwords and
// unverified accounts all surface the same generic failure so usernames cannot
// be enumerated.
func (s *AccountService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: fetch user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) || !user.IsVerified {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(&user)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return pair, nil
}

// RefreshAccessToken mints a new access token from a refresh-typed token. The
// same refresh token is echoed back; there is no rotation.
func (s *AccountService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx = ensureContext(ctx)

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: fetch user: %w", err)
	}

	access, err := s.tokens.GenerateAccessToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("account service: issue access token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refreshToken, TokenType: "bearer"}, nil
}

// VerifyEmail redeems an action token and flips the account to verified.
// Redeeming a token for an already-verified account conflicts; the operation
// is deliberately not idempotent.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	ctx = ensureContext(ctx)

	email, err := s.actionTokens.Verify(token, auth.DefaultActionTokenMaxAge)
	if err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("account service: fetch user: %w", err)
	}

	if user.IsVerified {
		return apperrors.ErrAlreadyVerified
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
		return fmt.Errorf("account service: mark verified: %w", err)
	}

	return nil
}

// InspectActionToken validates a token without redeeming it and returns the
// bound email address.
func (s *AccountService) InspectActionToken(token string) (string, error) {
	return s.actionTokens.Verify(token, auth.DefaultActionTokenMaxAge)
}

// ResendVerification issues a fresh verification mail. A missing or
// already-verified account reports delivered=false without an error so the
// endpoint stays low-friction and reveals nothing.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (bool, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account service: fetch user: %w", err)
	}

	if user.IsVerified {
		return false, nil
	}

	if err := s.sendVerificationMail(ctx, user.Email); err != nil {
		return false, err
	}
	return true, nil
}

// RequestPasswordReset issues a reset mail when the account exists; a missing
// account reports delivered=false without an error.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account service: fetch user: %w", err)
	}

	token, err := s.actionTokens.Issue(user.Email)
	if err != nil {
		return false, fmt.Errorf("account service: issue action token: %w", err)
	}

	if err := s.deliver(ctx, user.Email, "Reset your password",
		"Use the link below to choose a new password. The link expires in 30 minutes.\n\n"+
			s.link("/password-reset/confirm/", token)); err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmPasswordReset overwrites the stored password hash after validating
// the token and the new password pair. Existing access and refresh tokens stay
// valid; there is no forced re-login.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	ctx = ensureContext(ctx)

	if newPassword != confirmPassword {
		return apperrors.NewBadRequest("passwords do not match")
	}
	if err := auth.ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}

	email, err := s.actionTokens.Verify(token, auth.DefaultActionTokenMaxAge)
	if err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrResetTargetMissing
	}
	if err != nil {
		return fmt.Errorf("account service: fetch user: %w", err)
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("account service: update password: %w", err)
	}

	return nil
}

// CurrentUser resolves access-token claims to the account's introspection payload.
func (s *AccountService) CurrentUser(ctx context.Context, claims *auth.Claims) (*CurrentUser, error) {
	ctx = ensureContext(ctx)

	if claims == nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: fetch user: %w", err)
	}

	return &CurrentUser{
		ID:          user.ID,
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsOrganizer: user.IsOrganizer,
		IsAdmin:     user.IsAdmin,
		IsVerified:  user.IsVerified,
	}, nil
}

func (s *AccountService) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("account service: issue access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.Username, user.ID)
	if err != nil {
		return nil, fmt.Errorf("account service: issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AccountService) sendVerificationMail(ctx context.Context, email string) error {
	token, err := s.actionTokens.Issue(email)
	if err != nil {
		return fmt.Errorf("account service: issue action token: %w", err)
	}

	return s.deliver(ctx, email, "Verify your email",
		"Welcome! Confirm your email address using the link below. The link expires in 30 minutes.\n\n"+
			s.link("/verify-email/", token))
}

func (s *AccountService) deliver(ctx context.Context, recipient, subject, body string) error {
	err := s.mailer.Send(ctx, mail.Message{To: []string{recipient}, Subject: subject, Body: body})
	if err != nil {
		metrics.MailDeliveries.WithLabelValues("failed").Inc()
		logger.Error("mail delivery failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return apperrors.ErrMailDeliveryFailed.WithInternal(err)
	}

	metrics.MailDeliveries.WithLabelValues("sent").Inc()
	return nil
}

func (s *AccountService) link(path, token string) string {
	base := s.baseURL
	if base == "" {
		base = "http://localhost:8080"
	}
	return base + path + token
}
