package twofa

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, BACKUP_CODE_COUNT)

	format := regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}$`)
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Regexp(t, format, code)
		assert.False(t, seen[code], "duplicate backup code in one batch: %s", code)
		seen[code] = true
	}
}

func TestNormalizeBackupCode(t *testing.T) {
	tests := []struct {
		name     string
		supplied string
		want     string
	}{
		{"already canonical", "A1B2-C3D4", "A1B2-C3D4"},
		{"lowercase", "a1b2-c3d4", "A1B2-C3D4"},
		{"surrounding whitespace", "  a1b2-c3d4\n", "A1B2-C3D4"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBackupCode(tt.supplied))
		})
	}
}

func TestIsBackupCodeShape(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"valid", "A1B2-C3D4", true},
		{"all digits", "1234-5678", true},
		{"missing dash", "A1B2C3D4", false},
		{"dash misplaced", "A1B-2C3D4", false},
		{"too short", "A1B2-C3D", false},
		{"non-hex", "G1B2-C3D4", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBackupCodeShape(tt.code))
		})
	}
}
