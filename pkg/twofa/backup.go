package twofa

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gla1v3/console-auth/pkg/utils"
)

// BACKUP_CODE_COUNT codes are issued per enrollment or regeneration.
const BACKUP_CODE_COUNT = 10

// GenerateBackupCodes produces BACKUP_CODE_COUNT single-use recovery codes in
// XXXX-XXXX uppercase hex form. The plaintext codes are shown to the user
// exactly once; only hashes are ever stored.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BACKUP_CODE_COUNT)
	for i := 0; i < BACKUP_CODE_COUNT; i++ {
		raw, err := utils.GenerateRandomHex(4)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		raw = strings.ToUpper(raw)
		codes = append(codes, raw[:4]+"-"+raw[4:])
	}
	return codes, nil
}

// NormalizeBackupCode canonicalizes user input before comparison: surrounding
// whitespace is dropped and hex digits are uppercased.
func NormalizeBackupCode(supplied string) string {
	return strings.ToUpper(strings.TrimSpace(supplied))
}

// IsBackupCodeShape reports whether a normalized code has the XXXX-XXXX hex
// form. Shape rejection avoids pointless bcrypt comparisons.
func IsBackupCodeShape(code string) bool {
	if len(code) != 9 || code[4] != '-' {
		return false
	}
	_, err := hex.DecodeString(strings.ToLower(code[:4] + code[5:]))
	return err == nil
}
