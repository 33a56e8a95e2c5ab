package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/client"
	"github.com/gla1v3/console-auth/pkg/twofa"
)

// Handle handles HTTP requests for two-factor enrollment. All routes assume
// an authenticated caller; the username is taken from the request context,
// never from the body.
type Handle struct {
	twoFaService *twofa.TwoFaService
}

// NewHandle creates a new Handle
func NewHandle(twoFaService *twofa.TwoFaService) *Handle {
	return &Handle{
		twoFaService: twoFaService,
	}
}

// SetupResponse carries the candidate secret and otpauth URL for the QR code
type SetupResponse struct {
	Status     string `json:"status"`
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// EnableRequest confirms enrollment with a passcode from the authenticator
type EnableRequest struct {
	Secret   string `json:"secret"`
	Passcode string `json:"passcode"`
}

// EnableResponse returns the plaintext backup codes exactly once
type EnableResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	BackupCodes []string `json:"backup_codes"`
}

// DisableRequest requires a currently valid passcode
type DisableRequest struct {
	Passcode string `json:"passcode"`
}

// RegenerateResponse returns the fresh plaintext backup codes
type RegenerateResponse struct {
	Status      string   `json:"status"`
	BackupCodes []string `json:"backup_codes"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PostSetup generates a candidate TOTP secret for the caller
// (POST /setup)
func (h *Handle) PostSetup(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	enrollment, err := h.twoFaService.Setup(r.Context(), authUser.Username)
	if err != nil {
		renderEnrollmentError(w, r, authUser.Username, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SetupResponse{
		Status:     "success",
		Secret:     enrollment.Secret,
		OtpauthURL: enrollment.OtpauthURL,
	})
}

// PostEnable confirms the candidate secret and activates two-factor auth
// (POST /enable)
func (h *Handle) PostEnable(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var data EnableRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "Unable to parse request body")
		return
	}
	if data.Secret == "" || data.Passcode == "" {
		renderErrorResponse(w, r, http.StatusBadRequest, "secret and passcode are required")
		return
	}

	codes, err := h.twoFaService.EnableTwoFactor(r.Context(), authUser.Username, data.Secret, data.Passcode)
	if err != nil {
		renderEnrollmentError(w, r, authUser.Username, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EnableResponse{
		Status:      "success",
		Message:     "Two-factor authentication enabled. Store these backup codes; they will not be shown again.",
		BackupCodes: codes,
	})
}

// PostDisable turns two-factor authentication off for the caller
// (POST /disable)
func (h *Handle) PostDisable(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var data DisableRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "Unable to parse request body")
		return
	}

	if err := h.twoFaService.DisableTwoFactor(r.Context(), authUser.Username, data.Passcode); err != nil {
		renderEnrollmentError(w, r, authUser.Username, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{
		Status:  "success",
		Message: "Two-factor authentication disabled",
	})
}

// PostBackupCodes replaces every backup code with a fresh set
// (POST /backup-codes)
func (h *Handle) PostBackupCodes(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	codes, err := h.twoFaService.RegenerateBackupCodes(r.Context(), authUser.Username)
	if err != nil {
		renderEnrollmentError(w, r, authUser.Username, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RegenerateResponse{
		Status:      "success",
		BackupCodes: codes,
	})
}

// Handler returns a http.Handler for the two-factor enrollment API
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Post("/setup", h.PostSetup)
	r.Post("/enable", h.PostEnable)
	r.Post("/disable", h.PostDisable)
	r.Post("/backup-codes", h.PostBackupCodes)

	return r
}

func renderEnrollmentError(w http.ResponseWriter, r *http.Request, username string, err error) {
	switch {
	case errors.Is(err, twofa.ErrTwoFactorAlreadyEnabled):
		renderErrorResponse(w, r, http.StatusConflict, "Two-factor authentication is already enabled")
	case errors.Is(err, twofa.ErrTwoFactorNotEnabled):
		renderErrorResponse(w, r, http.StatusConflict, "Two-factor authentication is not enabled")
	case errors.Is(err, twofa.ErrInvalidPasscode), errors.Is(err, twofa.ErrMalformedPasscode):
		renderErrorResponse(w, r, http.StatusBadRequest, "Invalid passcode")
	case errors.Is(err, account.ErrAccountNotFound):
		renderErrorResponse(w, r, http.StatusUnauthorized, "Account not found")
	default:
		slog.Error("Two-factor enrollment operation failed", "username", username, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "Internal error")
	}
}

func renderErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Message: message,
	})
}
