package authflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/pendingauth"
	"github.com/gla1v3/console-auth/pkg/sessions"
	tg "github.com/gla1v3/console-auth/pkg/tokengenerator"
	"github.com/gla1v3/console-auth/pkg/twofa"
)

const (
	testPassword = "correct-horse-battery"
	testSecret   = "test-signing-secret"
)

type testAlerter struct {
	mu        sync.Mutex
	exhausted []string
	codeUsed  []string
	lowCounts []int
}

func (a *testAlerter) AttemptsExhausted(ctx context.Context, username, ip string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exhausted = append(a.exhausted, username)
	return nil
}

func (a *testAlerter) BackupCodeUsed(ctx context.Context, username, ip string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codeUsed = append(a.codeUsed, username)
	return nil
}

func (a *testAlerter) BackupCodesLow(ctx context.Context, username string, remaining int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lowCounts = append(a.lowCounts, remaining)
	return nil
}

type testEnv struct {
	flow           *AuthFlowService
	accountService *account.Service
	twoFaService   *twofa.TwoFaService
	pendingService *pendingauth.Service
	sessionService *sessions.Service
	alerter        *testAlerter
	totpSecret     string
	backupCodes    []string
}

// newTestEnv provisions "alice" with 2FA enrolled and "bob" without
func newTestEnv(t *testing.T, pendingOpts ...pendingauth.Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	accountRepo := account.NewInMemoryRepository()
	accountService := account.NewService(accountRepo, nil)
	twoFaService := twofa.NewTwoFaService(accountRepo, nil)
	pendingService := pendingauth.NewService(pendingauth.NewInMemoryRepository(), pendingOpts...)
	sessionService := sessions.NewService(sessions.NewInMemoryRepository())

	generator := tg.NewJwtTokenGenerator(testSecret, "console-auth", "console")
	jwtService := tg.NewJwtService(
		tg.WithTokenGenerator(tg.ACCESS_TOKEN_NAME, generator),
		tg.WithDefaultTokenGenerator(generator),
	)

	alerter := &testAlerter{}
	flow := NewAuthFlowService(accountService, twoFaService, pendingService, sessionService, jwtService, alerter)

	_, err := accountService.CreateAccount(ctx, account.CreateParams{Username: "alice", Password: testPassword})
	require.NoError(t, err)
	_, err = accountService.CreateAccount(ctx, account.CreateParams{Username: "bob", Password: testPassword})
	require.NoError(t, err)

	enrollment, err := twoFaService.Setup(ctx, "alice")
	require.NoError(t, err)
	passcode := gotp.NewDefaultTOTP(enrollment.Secret).Now()
	codes, err := twoFaService.EnableTwoFactor(ctx, "alice", enrollment.Secret, passcode)
	require.NoError(t, err)

	return &testEnv{
		flow:           flow,
		accountService: accountService,
		twoFaService:   twoFaService,
		pendingService: pendingService,
		sessionService: sessionService,
		alerter:        alerter,
		totpSecret:     enrollment.Secret,
		backupCodes:    codes,
	}
}

func (e *testEnv) currentPasscode() string {
	return gotp.NewDefaultTOTP(e.totpSecret).Now()
}

func (e *testEnv) loginAlice(t *testing.T) string {
	t.Helper()
	result := e.flow.ProcessLogin(context.Background(), Request{Username: "alice", Password: testPassword})
	require.True(t, result.RequiresTwoFA)
	require.NotEmpty(t, result.PendingToken)
	return result.PendingToken
}

func TestProcessLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("enrolled account gets pending token", func(t *testing.T) {
		result := env.flow.ProcessLogin(ctx, Request{Username: "alice", Password: testPassword})
		assert.True(t, result.RequiresTwoFA)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.PendingToken)
		assert.Empty(t, result.AccessToken, "no credential before the second factor")
		assert.Empty(t, result.Session.Bearer)
	})

	t.Run("non-enrolled account gets immediate session", func(t *testing.T) {
		result := env.flow.ProcessLogin(ctx, Request{Username: "bob", Password: testPassword})
		assert.True(t, result.Success)
		assert.False(t, result.RequiresTwoFA)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.Session.Bearer)
	})

	t.Run("wrong password", func(t *testing.T) {
		result := env.flow.ProcessLogin(ctx, Request{Username: "alice", Password: "wrong"})
		require.NotNil(t, result.ErrorResponse)
		assert.Equal(t, ErrorTypeInvalidCredentials, result.ErrorResponse.Type)
	})

	t.Run("unknown username is indistinguishable from wrong password", func(t *testing.T) {
		unknown := env.flow.ProcessLogin(ctx, Request{Username: "mallory", Password: testPassword})
		wrongPw := env.flow.ProcessLogin(ctx, Request{Username: "alice", Password: "wrong"})
		require.NotNil(t, unknown.ErrorResponse)
		require.NotNil(t, wrongPw.ErrorResponse)
		assert.Equal(t, wrongPw.ErrorResponse.Type, unknown.ErrorResponse.Type)
		assert.Equal(t, wrongPw.ErrorResponse.Message, unknown.ErrorResponse.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		result := env.flow.ProcessLogin(ctx, Request{Username: "alice"})
		require.NotNil(t, result.ErrorResponse)
		assert.Equal(t, ErrorTypeMalformedInput, result.ErrorResponse.Type)
	})
}

func TestProcessTwoFactorVerification_Totp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pendingToken := env.loginAlice(t)

	result := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: pendingToken,
		Passcode:     env.currentPasscode(),
	})
	require.Nil(t, result.ErrorResponse)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, "operator", result.Role)

	// The session is live
	_, err := env.sessionService.ValidateBearer(ctx, result.Session.Bearer)
	assert.NoError(t, err)

	// The pending token is one-shot
	replay := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: pendingToken,
		Passcode:     env.currentPasscode(),
	})
	require.NotNil(t, replay.ErrorResponse)
	assert.Equal(t, ErrorTypeTokenExpiredOrInvalid, replay.ErrorResponse.Type)
}

func TestProcessTwoFactorVerification_BackupCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pendingToken := env.loginAlice(t)
	code := env.backupCodes[0]

	result := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: pendingToken,
		BackupCode:   code,
	})
	require.Nil(t, result.ErrorResponse)
	assert.True(t, result.Success)

	// Replaying the consumed code on a fresh pending token is reported as
	// already used, not merely invalid
	second := env.loginAlice(t)
	replay := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: second,
		BackupCode:   code,
	})
	require.NotNil(t, replay.ErrorResponse)
	assert.Equal(t, ErrorTypeBackupCodeAlreadyUsed, replay.ErrorResponse.Type)
	assert.Equal(t, pendingauth.DefaultMaxAttempts-1, replay.AttemptsRemaining, "replay still burns an attempt")

	// A different unused code still works on the same pending token
	ok := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: second,
		BackupCode:   env.backupCodes[1],
	})
	assert.True(t, ok.Success)
}

func TestProcessTwoFactorVerification_InputShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pendingToken := env.loginAlice(t)

	tests := []struct {
		name    string
		request TwoFAVerifyRequest
	}{
		{"both factors", TwoFAVerifyRequest{PendingToken: pendingToken, Passcode: "123456", BackupCode: "A1B2-C3D4"}},
		{"neither factor", TwoFAVerifyRequest{PendingToken: pendingToken}},
		{"malformed passcode", TwoFAVerifyRequest{PendingToken: pendingToken, Passcode: "12ab56"}},
		{"malformed backup code", TwoFAVerifyRequest{PendingToken: pendingToken, BackupCode: "not-a-code-shape!!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := env.flow.ProcessTwoFactorVerification(ctx, tt.request)
			require.NotNil(t, result.ErrorResponse)
			assert.Equal(t, ErrorTypeMalformedInput, result.ErrorResponse.Type)
		})
	}

	// Shape failures spent no attempts
	pending, err := env.pendingService.Validate(ctx, pendingToken)
	require.NoError(t, err)
	assert.Equal(t, pendingauth.DefaultMaxAttempts, pending.AttemptsRemaining)

	// A real factor still succeeds
	result := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: pendingToken,
		Passcode:     env.currentPasscode(),
	})
	assert.True(t, result.Success)
}

func TestProcessTwoFactorVerification_DeadToken(t *testing.T) {
	env := newTestEnv(t, pendingauth.WithTTL(time.Nanosecond))
	ctx := context.Background()

	result := env.flow.ProcessLogin(ctx, Request{Username: "alice", Password: testPassword})
	require.True(t, result.RequiresTwoFA)

	time.Sleep(5 * time.Millisecond)

	verify := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: result.PendingToken,
		Passcode:     env.currentPasscode(),
	})
	require.NotNil(t, verify.ErrorResponse)
	assert.Equal(t, ErrorTypeTokenExpiredOrInvalid, verify.ErrorResponse.Type)

	garbage := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: "00000000000000000000000000000000",
		Passcode:     env.currentPasscode(),
	})
	require.NotNil(t, garbage.ErrorResponse)
	assert.Equal(t, ErrorTypeTokenExpiredOrInvalid, garbage.ErrorResponse.Type)
}

func TestProcessTwoFactorVerification_AttemptsExhausted(t *testing.T) {
	env := newTestEnv(t, pendingauth.WithMaxAttempts(3))
	ctx := context.Background()
	pendingToken := env.loginAlice(t)

	first := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{PendingToken: pendingToken, Passcode: "000000"})
	require.NotNil(t, first.ErrorResponse)
	assert.Equal(t, ErrorTypeInvalidSecondFactor, first.ErrorResponse.Type)
	assert.Equal(t, 2, first.AttemptsRemaining)

	second := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{PendingToken: pendingToken, Passcode: "000000"})
	require.NotNil(t, second.ErrorResponse)
	assert.Equal(t, ErrorTypeInvalidSecondFactor, second.ErrorResponse.Type)
	assert.Equal(t, 1, second.AttemptsRemaining)

	third := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{PendingToken: pendingToken, Passcode: "000000"})
	require.NotNil(t, third.ErrorResponse)
	assert.Equal(t, ErrorTypeAttemptsExhausted, third.ErrorResponse.Type)

	// The token is gone; even the right factor cannot revive it
	after := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: pendingToken,
		Passcode:     env.currentPasscode(),
	})
	require.NotNil(t, after.ErrorResponse)
	assert.Equal(t, ErrorTypeTokenExpiredOrInvalid, after.ErrorResponse.Type)

	// Exhaustion raised an operator alert
	env.alerter.mu.Lock()
	defer env.alerter.mu.Unlock()
	assert.Equal(t, []string{"alice"}, env.alerter.exhausted)
}

func TestProcessTwoFactorVerification_ConcurrentBackupCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	code := env.backupCodes[0]

	// Two independent pending tokens racing to spend the same code
	first := env.loginAlice(t)
	second := env.loginAlice(t)

	var wg sync.WaitGroup
	results := make(chan Result, 2)
	for _, token := range []string{first, second} {
		wg.Add(1)
		go func(pendingToken string) {
			defer wg.Done()
			results <- env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
				PendingToken: pendingToken,
				BackupCode:   code,
			})
		}(token)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for result := range results {
		if result.Success {
			wins++
		} else {
			losses++
			require.NotNil(t, result.ErrorResponse)
			assert.Contains(t,
				[]string{ErrorTypeBackupCodeAlreadyUsed, ErrorTypeInvalidSecondFactor},
				result.ErrorResponse.Type)
		}
	}
	assert.Equal(t, 1, wins, "a backup code grants at most one session")
	assert.Equal(t, 1, losses)
}

func TestProcessTwoFactorVerification_BackupCodeAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A spend with plenty of codes left raises only the used alert
	token := env.loginAlice(t)
	result := env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: token,
		BackupCode:   env.backupCodes[0],
	})
	require.True(t, result.Success)

	env.alerter.mu.Lock()
	assert.Equal(t, []string{"alice"}, env.alerter.codeUsed)
	assert.Empty(t, env.alerter.lowCounts)
	env.alerter.mu.Unlock()

	// Drain the account down to two unused codes behind the flow's back
	entity, err := env.accountService.Lookup(ctx, "alice")
	require.NoError(t, err)
	for _, code := range entity.UnusedBackupCodes()[:7] {
		require.NoError(t, env.twoFaService.ConsumeBackupCode(ctx, "alice", code.ID))
	}

	// Spending the next code leaves one; the low-water warning fires
	token = env.loginAlice(t)
	result = env.flow.ProcessTwoFactorVerification(ctx, TwoFAVerifyRequest{
		PendingToken: token,
		BackupCode:   env.backupCodes[8],
	})
	require.True(t, result.Success)

	env.alerter.mu.Lock()
	defer env.alerter.mu.Unlock()
	assert.Equal(t, []string{"alice", "alice"}, env.alerter.codeUsed)
	assert.Equal(t, []int{1}, env.alerter.lowCounts)
}

func TestProcessPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("wrong current password", func(t *testing.T) {
		result := env.flow.ProcessPasswordChange(ctx, "bob", "wrong", "brand-new-password")
		require.NotNil(t, result.ErrorResponse)
		assert.Equal(t, ErrorTypeInvalidCredentials, result.ErrorResponse.Type)
	})

	t.Run("missing fields", func(t *testing.T) {
		result := env.flow.ProcessPasswordChange(ctx, "bob", testPassword, "")
		require.NotNil(t, result.ErrorResponse)
		assert.Equal(t, ErrorTypeMalformedInput, result.ErrorResponse.Type)
	})

	t.Run("change takes effect at the next login", func(t *testing.T) {
		result := env.flow.ProcessPasswordChange(ctx, "bob", testPassword, "brand-new-password")
		require.Nil(t, result.ErrorResponse)
		assert.True(t, result.Success)

		old := env.flow.ProcessLogin(ctx, Request{Username: "bob", Password: testPassword})
		require.NotNil(t, old.ErrorResponse)
		assert.Equal(t, ErrorTypeInvalidCredentials, old.ErrorResponse.Type)

		fresh := env.flow.ProcessLogin(ctx, Request{Username: "bob", Password: "brand-new-password"})
		assert.True(t, fresh.Success)
	})
}

func TestProcessLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	login := env.flow.ProcessLogin(ctx, Request{Username: "bob", Password: testPassword})
	require.True(t, login.Success)

	result := env.flow.ProcessLogout(ctx, login.Session.Bearer)
	assert.True(t, result.Success)

	_, err := env.sessionService.ValidateBearer(ctx, login.Session.Bearer)
	assert.ErrorIs(t, err, sessions.ErrSessionRevoked)

	// Logout is idempotent
	again := env.flow.ProcessLogout(ctx, login.Session.Bearer)
	assert.True(t, again.Success)
}

func TestProcessTokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	login := env.flow.ProcessLogin(ctx, Request{Username: "bob", Password: testPassword})
	require.True(t, login.Success)

	refresh := env.flow.ProcessTokenRefresh(ctx, login.Session.Bearer)
	require.Nil(t, refresh.ErrorResponse)
	assert.True(t, refresh.Success)
	assert.NotEmpty(t, refresh.AccessToken)
	assert.Equal(t, login.Session.ID, refresh.Session.ID, "refresh keeps the same session")

	// A revoked session cannot refresh
	require.NoError(t, env.sessionService.RevokeByBearer(ctx, login.Session.Bearer))
	dead := env.flow.ProcessTokenRefresh(ctx, login.Session.Bearer)
	require.NotNil(t, dead.ErrorResponse)
	assert.Equal(t, ErrorTypeTokenExpiredOrInvalid, dead.ErrorResponse.Type)
}
