package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
// A malformed digest is reported as a mismatch, never a panic.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// DeriveSocialSecret produces the deterministic password used for accounts
// created through a social identity provider. The value is keyed on the
// provider tag and the provider-issued subject id so repeated sign-ins derive
// the same secret; it is hashed before storage and never shown to the user.
func DeriveSocialSecret(provider, externalID string) string {
	mac := hmac.New(sha256.New, []byte(provider))
	mac.Write([]byte(externalID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
