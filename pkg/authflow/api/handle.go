package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/gla1v3/console-auth/pkg/authflow"
	"github.com/gla1v3/console-auth/pkg/client"
)

// Handle handles HTTP requests for the authentication flow. Login and
// second-factor verification are unauthenticated; logout and refresh require
// a valid access token.
type Handle struct {
	authFlowService *authflow.AuthFlowService
}

// NewHandle creates a new Handle
func NewHandle(authFlowService *authflow.AuthFlowService) *Handle {
	return &Handle{
		authFlowService: authFlowService,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PendingResponse is returned when the password was correct but a second
// factor is still required
type PendingResponse struct {
	Status       string    `json:"status"`
	Requires2FA  bool      `json:"requires2FA"`
	PendingToken string    `json:"tempToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthenticatedResponse carries the full credential after authentication
// completes
type AuthenticatedResponse struct {
	Status    string    `json:"status"`
	Token     string    `json:"token"`
	SessionID uuid.UUID `json:"sessionId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyRequest carries a pending token and exactly one second factor
type VerifyRequest struct {
	PendingToken string `json:"tempToken"`
	Passcode     string `json:"token,omitempty"`
	BackupCode   string `json:"backupCode,omitempty"`
}

// PasswordChangeRequest represents the password change request body
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response. AttemptsRemaining is only set
// for failed second-factor attempts that left the pending token alive.
type ErrorResponse struct {
	Status            string `json:"status"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
}

// PostLogin starts authentication with a username and password
// (POST /login)
func (h *Handle) PostLogin(w http.ResponseWriter, r *http.Request) {
	var data LoginRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, authflow.ErrorTypeMalformedInput, "Unable to parse request body")
		return
	}

	result := h.authFlowService.ProcessLogin(r.Context(), authflow.Request{
		Username:  data.Username,
		Password:  data.Password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	renderResult(w, r, result)
}

// PostVerify completes authentication with a TOTP passcode or a backup code
// (POST /2fa/verify)
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	var data VerifyRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, authflow.ErrorTypeMalformedInput, "Unable to parse request body")
		return
	}

	result := h.authFlowService.ProcessTwoFactorVerification(r.Context(), authflow.TwoFAVerifyRequest{
		PendingToken: data.PendingToken,
		Passcode:     data.Passcode,
		BackupCode:   data.BackupCode,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})
	renderResult(w, r, result)
}

// PostLogout revokes the caller's session
// (POST /logout)
func (h *Handle) PostLogout(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, authflow.ErrorTypeTokenExpiredOrInvalid, "Authentication required")
		return
	}

	result := h.authFlowService.ProcessLogout(r.Context(), authUser.SessionBearer)
	if result.ErrorResponse != nil {
		renderFlowError(w, r, result)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{
		Status:  "success",
		Message: "Logged out",
	})
}

// PostRefresh mints a fresh access token against the caller's live session
// (POST /refresh)
func (h *Handle) PostRefresh(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, authflow.ErrorTypeTokenExpiredOrInvalid, "Authentication required")
		return
	}

	result := h.authFlowService.ProcessTokenRefresh(r.Context(), authUser.SessionBearer)
	renderResult(w, r, result)
}

// PutPassword replaces the caller's password after re-verifying the current
// one (PUT /password)
func (h *Handle) PutPassword(w http.ResponseWriter, r *http.Request) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		renderErrorResponse(w, r, http.StatusUnauthorized, authflow.ErrorTypeTokenExpiredOrInvalid, "Authentication required")
		return
	}

	var data PasswordChangeRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, authflow.ErrorTypeMalformedInput, "Unable to parse request body")
		return
	}

	result := h.authFlowService.ProcessPasswordChange(r.Context(), authUser.Username, data.CurrentPassword, data.NewPassword)
	if result.ErrorResponse != nil {
		renderFlowError(w, r, result)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{
		Status:  "success",
		Message: "Password updated",
	})
}

func renderResult(w http.ResponseWriter, r *http.Request, result authflow.Result) {
	switch {
	case result.ErrorResponse != nil:
		renderFlowError(w, r, result)
	case result.RequiresTwoFA:
		render.Status(r, http.StatusOK)
		render.JSON(w, r, PendingResponse{
			Status:       "pending",
			Requires2FA:  true,
			PendingToken: result.PendingToken,
			ExpiresAt:    result.PendingExpiresAt,
		})
	default:
		render.Status(r, http.StatusOK)
		render.JSON(w, r, AuthenticatedResponse{
			Status:    "success",
			Token:     result.AccessToken,
			SessionID: result.Session.ID,
			Username:  result.Username,
			Role:      result.Role,
			ExpiresAt: result.AccessTokenExpiresAt,
		})
	}
}

func renderFlowError(w http.ResponseWriter, r *http.Request, result authflow.Result) {
	response := ErrorResponse{
		Status:  "error",
		Error:   result.ErrorResponse.Type,
		Message: result.ErrorResponse.Message,
	}

	var statusCode int
	switch result.ErrorResponse.Type {
	case authflow.ErrorTypeMalformedInput:
		statusCode = http.StatusBadRequest
	case authflow.ErrorTypeAttemptsExhausted:
		statusCode = http.StatusTooManyRequests
	case authflow.ErrorTypeInternalError:
		statusCode = http.StatusInternalServerError
	case authflow.ErrorTypeInvalidSecondFactor, authflow.ErrorTypeBackupCodeAlreadyUsed:
		statusCode = http.StatusUnauthorized
		remaining := result.AttemptsRemaining
		response.AttemptsRemaining = &remaining
	default:
		statusCode = http.StatusUnauthorized
	}

	render.Status(r, statusCode)
	render.JSON(w, r, response)
}

func renderErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorType, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Error:   errorType,
		Message: message,
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
