package authflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/pendingauth"
	"github.com/gla1v3/console-auth/pkg/sessions"
	tg "github.com/gla1v3/console-auth/pkg/tokengenerator"
	"github.com/gla1v3/console-auth/pkg/twofa"
)

// Error type constants
const (
	ErrorTypeInvalidCredentials    = "invalid_credentials"
	ErrorTypeTokenExpiredOrInvalid = "token_expired_or_invalid"
	ErrorTypeInvalidSecondFactor   = "invalid_second_factor"
	ErrorTypeBackupCodeAlreadyUsed = "backup_code_already_used"
	ErrorTypeAttemptsExhausted     = "attempts_exhausted"
	ErrorTypeMalformedInput        = "malformed_input"
	ErrorTypeInternalError         = "internal_error"
)

// SecurityNotifier receives operator alerts for suspicious events. A nil
// notifier disables alerting without changing flow behavior.
type SecurityNotifier interface {
	AttemptsExhausted(ctx context.Context, username, ipAddress string) error
	BackupCodeUsed(ctx context.Context, username, ipAddress string) error
	BackupCodesLow(ctx context.Context, username string, remaining int) error
}

// lowBackupCodeThreshold is the unused-code count at or below which the
// operator is warned after a backup-code sign-in.
const lowBackupCodeThreshold = 3

// Request contains the data for a password login
type Request struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// TwoFAVerifyRequest contains the data for second-factor verification.
// Exactly one of Passcode and BackupCode must be set.
type TwoFAVerifyRequest struct {
	PendingToken string
	Passcode     string
	BackupCode   string
	IPAddress    string
	UserAgent    string
}

// Result contains the result of an authentication flow operation
type Result struct {
	Success       bool
	RequiresTwoFA bool

	// Set when RequiresTwoFA
	PendingToken     string
	PendingExpiresAt time.Time

	// Set on Success
	Session              sessions.Session
	AccessToken          string
	AccessTokenExpiresAt time.Time
	Username             string
	Role                 string

	// Set on failed second-factor checks while the token survives
	AttemptsRemaining int

	ErrorResponse *Error
}

// Error represents structured errors from the authentication flow
type Error struct {
	Type    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AuthFlowService orchestrates the two-phase authentication flow:
// Unauthenticated -> PendingSecondFactor -> Authenticated. The service holds
// no per-flow state; all serialization happens in the storage layers.
type AuthFlowService struct {
	accountService *account.Service
	twoFaService   *twofa.TwoFaService
	pendingService *pendingauth.Service
	sessionService *sessions.Service
	jwtService     *tg.JwtService
	notifier       SecurityNotifier
}

// NewAuthFlowService creates a new authentication flow service.
// notifier may be nil; operator alerting is then disabled.
func NewAuthFlowService(
	accountService *account.Service,
	twoFaService *twofa.TwoFaService,
	pendingService *pendingauth.Service,
	sessionService *sessions.Service,
	jwtService *tg.JwtService,
	notifier SecurityNotifier,
) *AuthFlowService {
	return &AuthFlowService{
		accountService: accountService,
		twoFaService:   twoFaService,
		pendingService: pendingService,
		sessionService: sessionService,
		jwtService:     jwtService,
		notifier:       notifier,
	}
}

// ProcessLogin verifies a password and either issues a pending token (2FA
// enrolled) or a full session (not enrolled). Unknown usernames and wrong
// passwords are indistinguishable to the caller.
func (s *AuthFlowService) ProcessLogin(ctx context.Context, request Request) Result {
	if request.Username == "" || request.Password == "" {
		return errorResult(ErrorTypeMalformedInput, "username and password are required")
	}

	entity, err := s.accountService.Lookup(ctx, request.Username)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			// Burn a hash comparison so the unknown-username path takes
			// as long as a wrong password
			s.accountService.BurnPasswordCheck(request.Password)
			slog.Info("Login failed: unknown username", "ip", request.IPAddress)
			return errorResult(ErrorTypeInvalidCredentials, "invalid username or password")
		}
		slog.Error("Login failed: account lookup error", "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	ok, err := s.accountService.VerifyPassword(ctx, request.Username, request.Password)
	if err != nil {
		slog.Error("Login failed: password verification error", "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}
	if !ok {
		slog.Info("Login failed: wrong password", "username", request.Username, "ip", request.IPAddress)
		return errorResult(ErrorTypeInvalidCredentials, "invalid username or password")
	}

	if !entity.TwoFactorEnabled {
		slog.Info("Login succeeded without second factor", "username", request.Username)
		return s.finishAuthentication(ctx, entity, request.IPAddress, request.UserAgent)
	}

	pending, err := s.pendingService.Issue(ctx, request.Username)
	if err != nil {
		slog.Error("Failed to issue pending token", "username", request.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	return Result{
		RequiresTwoFA:    true,
		PendingToken:     pending.ID,
		PendingExpiresAt: pending.ExpiresAt,
	}
}

// ProcessTwoFactorVerification exchanges a pending token plus a second
// factor for a session. Every unsuccessful factor check spends one unit of
// the token's attempt budget; exhaustion invalidates the token.
func (s *AuthFlowService) ProcessTwoFactorVerification(ctx context.Context, request TwoFAVerifyRequest) Result {
	hasPasscode := request.Passcode != ""
	hasBackupCode := request.BackupCode != ""
	if hasPasscode == hasBackupCode {
		return errorResult(ErrorTypeMalformedInput, "exactly one of token and backupCode is required")
	}
	if request.PendingToken == "" {
		return errorResult(ErrorTypeTokenExpiredOrInvalid, "pending token is expired or invalid")
	}

	pending, err := s.pendingService.Validate(ctx, request.PendingToken)
	if err != nil {
		slog.Info("Second-factor verification with dead pending token", "reason", err, "ip", request.IPAddress)
		return errorResult(ErrorTypeTokenExpiredOrInvalid, "pending token is expired or invalid")
	}

	if hasPasscode {
		return s.verifyPasscode(ctx, pending, request)
	}
	return s.verifyBackupCode(ctx, pending, request)
}

func (s *AuthFlowService) verifyPasscode(ctx context.Context, pending pendingauth.PendingToken, request TwoFAVerifyRequest) Result {
	valid, err := s.twoFaService.VerifyTotpPasscode(ctx, pending.Username, request.Passcode)
	if err != nil {
		if errors.Is(err, twofa.ErrMalformedPasscode) {
			// Shape failures never reach the verifier and spend no attempt
			return errorResult(ErrorTypeMalformedInput, "passcode must be exactly 6 digits")
		}
		slog.Error("Passcode verification error", "username", pending.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}
	if !valid {
		return s.failAttempt(ctx, pending, request.IPAddress, ErrorTypeInvalidSecondFactor, "invalid second factor")
	}

	return s.succeedSecondFactor(ctx, pending, request)
}

func (s *AuthFlowService) verifyBackupCode(ctx context.Context, pending pendingauth.PendingToken, request TwoFAVerifyRequest) Result {
	check, err := s.twoFaService.VerifyBackupCode(ctx, pending.Username, request.BackupCode)
	if err != nil {
		if errors.Is(err, twofa.ErrMalformedBackupCode) {
			// Shape failures never reach the stored codes and spend no
			// attempt, same as a malformed passcode
			return errorResult(ErrorTypeMalformedInput, "backup code must look like XXXX-XXXX")
		}
		slog.Error("Backup code verification error", "username", pending.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	switch check.Status {
	case twofa.BackupCodeInvalid:
		return s.failAttempt(ctx, pending, request.IPAddress, ErrorTypeInvalidSecondFactor, "invalid second factor")
	case twofa.BackupCodeAlreadyUsed:
		// Replay of a spent code: still burns an attempt, but the caller
		// learns the code was once valid
		return s.failAttempt(ctx, pending, request.IPAddress, ErrorTypeBackupCodeAlreadyUsed, "backup code already used")
	}

	// The code must be marked used before any credential is issued. Under a
	// concurrent spend of the same code exactly one request gets past this
	// point.
	if err := s.twoFaService.ConsumeBackupCode(ctx, pending.Username, check.CodeID); err != nil {
		if errors.Is(err, account.ErrBackupCodeAlreadyUsed) {
			return s.failAttempt(ctx, pending, request.IPAddress, ErrorTypeBackupCodeAlreadyUsed, "backup code already used")
		}
		slog.Error("Failed to consume backup code", "username", pending.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	s.alertBackupCodeUsed(ctx, pending.Username, request.IPAddress)
	return s.succeedSecondFactor(ctx, pending, request)
}

func (s *AuthFlowService) failAttempt(ctx context.Context, pending pendingauth.PendingToken, ipAddress, errorType, message string) Result {
	remaining, err := s.pendingService.ConsumeAttempt(ctx, pending.ID)
	if err != nil {
		if errors.Is(err, pendingauth.ErrAttemptsExhausted) {
			slog.Warn("Second-factor attempts exhausted", "username", pending.Username, "ip", ipAddress)
			s.alertAttemptsExhausted(ctx, pending.Username, ipAddress)
			return errorResult(ErrorTypeAttemptsExhausted, "verification attempts exhausted")
		}
		if errors.Is(err, pendingauth.ErrTokenNotFound) {
			// A concurrent verification already drained or spent the token
			return errorResult(ErrorTypeTokenExpiredOrInvalid, "pending token is expired or invalid")
		}
		slog.Error("Failed to consume attempt", "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	result := errorResult(errorType, message)
	result.AttemptsRemaining = remaining
	return result
}

func (s *AuthFlowService) succeedSecondFactor(ctx context.Context, pending pendingauth.PendingToken, request TwoFAVerifyRequest) Result {
	// One-shot token: redeeming is a compare-and-delete, so of any
	// concurrent verifications of this token at most one reaches the
	// session mint below
	if err := s.pendingService.Redeem(ctx, pending.ID); err != nil {
		if errors.Is(err, pendingauth.ErrTokenNotFound) {
			return errorResult(ErrorTypeTokenExpiredOrInvalid, "pending token is expired or invalid")
		}
		slog.Error("Failed to redeem pending token", "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	entity, err := s.accountService.Lookup(ctx, pending.Username)
	if err != nil {
		slog.Error("Account vanished mid-flow", "username", pending.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	slog.Info("Second-factor verification succeeded", "username", pending.Username)
	return s.finishAuthentication(ctx, entity, request.IPAddress, request.UserAgent)
}

func (s *AuthFlowService) finishAuthentication(ctx context.Context, entity account.AccountEntity, ipAddress, userAgent string) Result {
	session, err := s.sessionService.IssueSession(ctx, entity.Username, sessions.SessionMeta{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		slog.Error("Failed to issue session", "username", entity.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	token, expiresAt, err := s.mintAccessToken(entity, session)
	if err != nil {
		// No half-authenticated state: the session must not outlive a
		// failed token mint
		_ = s.sessionService.RevokeByBearer(ctx, session.Bearer)
		slog.Error("Failed to mint access token", "username", entity.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	return Result{
		Success:              true,
		Session:              session,
		AccessToken:          token,
		AccessTokenExpiresAt: expiresAt,
		Username:             entity.Username,
		Role:                 entity.Role,
	}
}

// ProcessPasswordChange re-verifies the current password before storing a
// new hash. Existing sessions stay valid; the caller keeps their credential.
func (s *AuthFlowService) ProcessPasswordChange(ctx context.Context, username, currentPassword, newPassword string) Result {
	if currentPassword == "" || newPassword == "" {
		return errorResult(ErrorTypeMalformedInput, "current and new password are required")
	}

	if err := s.accountService.ChangePassword(ctx, username, currentPassword, newPassword); err != nil {
		if errors.Is(err, account.ErrPasswordMismatch) {
			slog.Info("Password change with wrong current password", "username", username)
			return errorResult(ErrorTypeInvalidCredentials, "current password is incorrect")
		}
		slog.Error("Failed to change password", "username", username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	slog.Info("Password changed", "username", username)
	return Result{Success: true}
}

// ProcessLogout revokes the session behind a bearer. Logging out an already
// dead session is a success; logout is idempotent.
func (s *AuthFlowService) ProcessLogout(ctx context.Context, bearer string) Result {
	if err := s.sessionService.RevokeByBearer(ctx, bearer); err != nil {
		if !errors.Is(err, sessions.ErrSessionNotFound) {
			slog.Error("Failed to revoke session on logout", "err", err)
			return errorResult(ErrorTypeInternalError, "internal error")
		}
	}
	return Result{Success: true}
}

// ProcessTokenRefresh mints a fresh access token for a live session and
// bumps its activity. The session itself is not extended.
func (s *AuthFlowService) ProcessTokenRefresh(ctx context.Context, bearer string) Result {
	session, err := s.sessionService.ValidateBearer(ctx, bearer)
	if err != nil {
		slog.Info("Token refresh on dead session", "reason", err)
		return errorResult(ErrorTypeTokenExpiredOrInvalid, "session is expired or invalid")
	}

	entity, err := s.accountService.Lookup(ctx, session.Username)
	if err != nil {
		slog.Error("Failed to look up account for refresh", "username", session.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	token, expiresAt, err := s.mintAccessToken(entity, session)
	if err != nil {
		slog.Error("Failed to mint access token on refresh", "username", session.Username, "err", err)
		return errorResult(ErrorTypeInternalError, "internal error")
	}

	if err := s.sessionService.UpdateActivity(ctx, bearer); err != nil {
		slog.Warn("Failed to update session activity on refresh", "err", err)
	}

	return Result{
		Success:              true,
		Session:              session,
		AccessToken:          token,
		AccessTokenExpiresAt: expiresAt,
		Username:             entity.Username,
		Role:                 entity.Role,
	}
}

func (s *AuthFlowService) mintAccessToken(entity account.AccountEntity, session sessions.Session) (string, time.Time, error) {
	return s.jwtService.GenerateToken(tg.ACCESS_TOKEN_NAME, entity.Username, map[string]interface{}{
		"username":       entity.Username,
		"role":           entity.Role,
		"session_bearer": session.Bearer,
	})
}

func (s *AuthFlowService) alertAttemptsExhausted(ctx context.Context, username, ipAddress string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AttemptsExhausted(ctx, username, ipAddress); err != nil {
		slog.Warn("Failed to send attempts-exhausted alert", "username", username, "err", err)
	}
}

// alertBackupCodeUsed notifies the operator that a backup code was spent and
// warns additionally when the account is running low on unused codes.
func (s *AuthFlowService) alertBackupCodeUsed(ctx context.Context, username, ipAddress string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BackupCodeUsed(ctx, username, ipAddress); err != nil {
		slog.Warn("Failed to send backup-code-used alert", "username", username, "err", err)
	}

	entity, err := s.accountService.Lookup(ctx, username)
	if err != nil {
		return
	}
	remaining := len(entity.UnusedBackupCodes())
	if remaining <= lowBackupCodeThreshold {
		if err := s.notifier.BackupCodesLow(ctx, username, remaining); err != nil {
			slog.Warn("Failed to send backup-codes-low alert", "username", username, "err", err)
		}
	}
}

func errorResult(errorType, message string) Result {
	return Result{
		ErrorResponse: &Error{
			Type:    errorType,
			Message: message,
		},
	}
}
