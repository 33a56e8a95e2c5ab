package twofa

import (
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	TOTP_ISSUER = "Gla1v3 Console"
	SKEW        = 1
	PERIOD      = 30
)

// TotpEnrollment carries a freshly generated TOTP secret and the otpauth URL
// an authenticator app consumes as a QR code.
type TotpEnrollment struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// GenerateTotpSecret creates a new TOTP secret for the given account
func GenerateTotpSecret(username string) (TotpEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTP_ISSUER,
		AccountName: username,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "username", username, "issuer", TOTP_ISSUER, "error", err)
		return TotpEnrollment{}, err
	}
	slog.Info("Generated new totp secret", "username", username)
	return TotpEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
	}, nil
}

// GenerateTotpPasscode computes the passcode for a secret at the current time
func GenerateTotpPasscode(totpSecret string) (string, error) {
	code, err := totp.GenerateCodeCustom(totpSecret, time.Now().UTC(), totp.ValidateOpts{
		Period:    PERIOD,
		Skew:      SKEW,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to generate totp passcode", "error", err)
		return "", err
	}
	return code, nil
}

// ValidateTotpPasscode checks a passcode against a secret at the given time.
// The shape check runs before any cryptographic work so garbage input is
// rejected with ErrMalformedPasscode instead of silently failing validation.
// Skew of 1 accepts the passcode for the adjacent 30-second windows.
func ValidateTotpPasscode(totpSecret, passcode string, at time.Time) (bool, error) {
	if !isSixDigits(passcode) {
		return false, ErrMalformedPasscode
	}
	valid, err := totp.ValidateCustom(passcode, totpSecret, at.UTC(), totp.ValidateOpts{
		Period:    PERIOD,
		Skew:      SKEW,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false, err
	}
	return valid, nil
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
