package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

// DefaultActionTokenMaxAge is how long email-verification and password-reset
// links stay usable.
const DefaultActionTokenMaxAge = 30 * time.Minute

// actionTokenSalt scopes the signing key so action tokens and session JWTs
// live in separate trust domains even if secrets are reused.
const actionTokenSalt = "Email_Verification_&_Forgot_password"

var b64 = base64.RawURLEncoding

// ActionTokenService mints single-purpose, URL-safe tokens that bind an email
// address to an issuance timestamp. The token proves nothing beyond "someone
// with the signing key vouched for this email at this time"; account lookups
// happen at redemption.
type ActionTokenService struct {
	key []byte
	now func() time.Time
}

// NewActionTokenService derives the HMAC key from the secret and the fixed salt.
func NewActionTokenService(secret string, clock func() time.Time) (*ActionTokenService, error) {
	if secret == "" {
		return nil, errors.New("action token: secret must be provided")
	}

	if clock == nil {
		clock = time.Now
	}

	mac := hmac.New(sha256.New, []byte(actionTokenSalt))
	mac.Write([]byte(secret))

	return &ActionTokenService{key: mac.Sum(nil), now: clock}, nil
}

// Issue produces a token of the form payload.timestamp.signature, each part
// base64url encoded without padding.
func (s *ActionTokenService) Issue(email string) (string, error) {
	if email == "" {
		return "", errors.New("action token: email is required")
	}

	payload := b64.EncodeToString([]byte(email))
	stamp := b64.EncodeToString([]byte(strconv.FormatInt(s.now().Unix(), 10)))
	signed := payload + "." + stamp

	return signed + "." + b64.EncodeToString(s.sign(signed)), nil
}

// Verify checks the signature and age of a token and returns the bound email.
// A non-positive maxAge falls back to DefaultActionTokenMaxAge.
func (s *ActionTokenService) Verify(token string, maxAge time.Duration) (string, error) {
	if maxAge <= 0 {
		maxAge = DefaultActionTokenMaxAge
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", apperrors.ErrTokenInvalid
	}

	signature, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", apperrors.ErrTokenInvalid.WithInternal(err)
	}
	expected := s.sign(parts[0] + "." + parts[1])
	if subtle.ConstantTimeCompare(signature, expected) != 1 {
		return "", apperrors.ErrTokenInvalid
	}

	rawStamp, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", apperrors.ErrTokenInvalid.WithInternal(err)
	}
	issuedAt, err := strconv.ParseInt(string(rawStamp), 10, 64)
	if err != nil {
		return "", apperrors.ErrTokenInvalid.WithInternal(err)
	}
	if s.now().Sub(time.Unix(issuedAt, 0)) > maxAge {
		return "", apperrors.ErrTokenExpired
	}

	email, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", apperrors.ErrTokenInvalid.WithInternal(err)
	}

	return string(email), nil
}

func (s *ActionTokenService) sign(data string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
