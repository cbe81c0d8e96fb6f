package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/cultach/cultach-api/pkg/errors"
)

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: "Str0ng!pass"},
		{name: "too short", password: "S0r!t", wantErr: "at least 8 characters"},
		{name: "missing uppercase", password: "str0ng!pass", wantErr: "uppercase letter"},
		{name: "missing lowercase", password: "STR0NG!PASS", wantErr: "lowercase letter"},
		{name: "missing digit", password: "Strong!pass", wantErr: "digit"},
		{name: "missing symbol", password: "Str0ngpass", wantErr: "special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrWeakPassword)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePasswordPolicyReportsEveryViolation(t *testing.T) {
	err := ValidatePasswordPolicy("abc")
	require.ErrorIs(t, err, apperrors.ErrWeakPassword)

	for _, fragment := range []string{
		"at least 8 characters",
		"uppercase letter",
		"digit",
		"special character",
	} {
		require.Contains(t, err.Error(), fragment)
	}
}
