package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/authflow"
	"github.com/gla1v3/console-auth/pkg/client"
	"github.com/gla1v3/console-auth/pkg/pendingauth"
	"github.com/gla1v3/console-auth/pkg/sessions"
	tg "github.com/gla1v3/console-auth/pkg/tokengenerator"
	"github.com/gla1v3/console-auth/pkg/twofa"
)

const testJwtSecret = "handle-test-secret"

type testFixture struct {
	handler    http.Handler
	totpSecret string
}

// newTestFixture wires the flow on in-memory repositories with accounts
// "alice" (2FA enrolled) and "bob" (password only)
func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	accountRepo := account.NewInMemoryRepository()
	accountService := account.NewService(accountRepo, nil)
	twoFaService := twofa.NewTwoFaService(accountRepo, nil)
	pendingService := pendingauth.NewService(pendingauth.NewInMemoryRepository())
	sessionService := sessions.NewService(sessions.NewInMemoryRepository())

	generator := tg.NewJwtTokenGenerator(testJwtSecret, "console-auth", "console")
	jwtService := tg.NewJwtService(
		tg.WithTokenGenerator(tg.ACCESS_TOKEN_NAME, generator),
		tg.WithDefaultTokenGenerator(generator),
	)

	flow := authflow.NewAuthFlowService(accountService, twoFaService, pendingService, sessionService, jwtService, nil)

	_, err := accountService.CreateAccount(ctx, account.CreateParams{Username: "alice", Password: "p4ssword-alice"})
	require.NoError(t, err)
	_, err = accountService.CreateAccount(ctx, account.CreateParams{Username: "bob", Password: "p4ssword-bob"})
	require.NoError(t, err)

	enrollment, err := twoFaService.Setup(ctx, "alice")
	require.NoError(t, err)
	passcode := gotp.NewDefaultTOTP(enrollment.Secret).Now()
	_, err = twoFaService.EnableTwoFactor(ctx, "alice", enrollment.Secret, passcode)
	require.NoError(t, err)

	// Routes mirror the production router: the two flow steps are open,
	// the rest sits behind token verification
	tokenAuth := jwtauth.New("HS256", []byte(testJwtSecret), nil)
	h := NewHandle(flow)
	r := chi.NewRouter()
	r.Post("/login", h.PostLogin)
	r.Post("/2fa/verify", h.PostVerify)
	r.Group(func(pr chi.Router) {
		pr.Use(client.Verifier(tokenAuth))
		pr.Use(client.AuthUserMiddleware)
		pr.Post("/logout", h.PostLogout)
		pr.Post("/refresh", h.PostRefresh)
		pr.Put("/password", h.PutPassword)
	})

	return &testFixture{
		handler:    r,
		totpSecret: enrollment.Secret,
	}
}

func (f *testFixture) post(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.request(t, http.MethodPost, path, token, body)
}

func (f *testFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestPostLogin_PendingFlow(t *testing.T) {
	f := newTestFixture(t)

	w := f.post(t, "/login", "", LoginRequest{Username: "alice", Password: "p4ssword-alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response PendingResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "pending", response.Status)
	assert.True(t, response.Requires2FA)
	assert.NotEmpty(t, response.PendingToken)
	assert.NotContains(t, w.Body.String(), `"token":`, "no access token before the second factor")
}

func TestPostLogin_DirectFlow(t *testing.T) {
	f := newTestFixture(t)

	w := f.post(t, "/login", "", LoginRequest{Username: "bob", Password: "p4ssword-bob"})
	require.Equal(t, http.StatusOK, w.Code)

	var response AuthenticatedResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "success", response.Status)
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, "bob", response.Username)
	assert.Equal(t, "operator", response.Role)
}

func TestPostLogin_BadCredentials(t *testing.T) {
	f := newTestFixture(t)

	w := f.post(t, "/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var response ErrorResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "invalid_credentials", response.Error)

	// Missing fields are a 400, not a 401
	assert.Equal(t, http.StatusBadRequest, f.post(t, "/login", "", LoginRequest{Username: "alice"}).Code)
}

func TestPostVerify_CompletesFlow(t *testing.T) {
	f := newTestFixture(t)

	var pending PendingResponse
	decodeBody(t, f.post(t, "/login", "", LoginRequest{Username: "alice", Password: "p4ssword-alice"}), &pending)

	w := f.post(t, "/2fa/verify", "", VerifyRequest{
		PendingToken: pending.PendingToken,
		Passcode:     gotp.NewDefaultTOTP(f.totpSecret).Now(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response AuthenticatedResponse
	decodeBody(t, w, &response)
	assert.NotEmpty(t, response.Token)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", response.SessionID.String())
	assert.Equal(t, "alice", response.Username)
}

func TestPostVerify_ErrorStatuses(t *testing.T) {
	f := newTestFixture(t)

	var pending PendingResponse
	decodeBody(t, f.post(t, "/login", "", LoginRequest{Username: "alice", Password: "p4ssword-alice"}), &pending)

	t.Run("wrong passcode is 401 with attempts remaining", func(t *testing.T) {
		w := f.post(t, "/2fa/verify", "", VerifyRequest{PendingToken: pending.PendingToken, Passcode: "000000"})
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var response ErrorResponse
		decodeBody(t, w, &response)
		assert.Equal(t, "invalid_second_factor", response.Error)
		require.NotNil(t, response.AttemptsRemaining)
		assert.Equal(t, pendingauth.DefaultMaxAttempts-1, *response.AttemptsRemaining)
	})

	t.Run("garbage pending token is 401", func(t *testing.T) {
		w := f.post(t, "/2fa/verify", "", VerifyRequest{PendingToken: "nope", Passcode: "000000"})
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var response ErrorResponse
		decodeBody(t, w, &response)
		assert.Equal(t, "token_expired_or_invalid", response.Error)
	})

	t.Run("malformed backup code is 400", func(t *testing.T) {
		w := f.post(t, "/2fa/verify", "", VerifyRequest{
			PendingToken: pending.PendingToken,
			BackupCode:   "not-a-code-shape!!",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		decodeBody(t, w, &response)
		assert.Equal(t, "malformed_input", response.Error)
	})

	t.Run("both factors is 400", func(t *testing.T) {
		w := f.post(t, "/2fa/verify", "", VerifyRequest{
			PendingToken: pending.PendingToken,
			Passcode:     "123456",
			BackupCode:   "A1B2-C3D4",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPostVerify_AttemptsExhaustedIs429(t *testing.T) {
	f := newTestFixture(t)

	var pending PendingResponse
	decodeBody(t, f.post(t, "/login", "", LoginRequest{Username: "alice", Password: "p4ssword-alice"}), &pending)

	var last *httptest.ResponseRecorder
	for i := 0; i < pendingauth.DefaultMaxAttempts; i++ {
		last = f.post(t, "/2fa/verify", "", VerifyRequest{PendingToken: pending.PendingToken, Passcode: "000000"})
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)

	var response ErrorResponse
	decodeBody(t, last, &response)
	assert.Equal(t, "attempts_exhausted", response.Error)
}

func TestPutPassword(t *testing.T) {
	f := newTestFixture(t)

	var login AuthenticatedResponse
	decodeBody(t, f.post(t, "/login", "", LoginRequest{Username: "bob", Password: "p4ssword-bob"}), &login)

	t.Run("wrong current password is 401", func(t *testing.T) {
		w := f.request(t, http.MethodPut, "/password", login.Token, PasswordChangeRequest{
			CurrentPassword: "wrong",
			NewPassword:     "p4ssword-new",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var response ErrorResponse
		decodeBody(t, w, &response)
		assert.Equal(t, "invalid_credentials", response.Error)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		w := f.request(t, http.MethodPut, "/password", login.Token, PasswordChangeRequest{
			CurrentPassword: "p4ssword-bob",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("change takes effect at the next login", func(t *testing.T) {
		w := f.request(t, http.MethodPut, "/password", login.Token, PasswordChangeRequest{
			CurrentPassword: "p4ssword-bob",
			NewPassword:     "p4ssword-new",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, http.StatusUnauthorized, f.post(t, "/login", "", LoginRequest{Username: "bob", Password: "p4ssword-bob"}).Code)
		assert.Equal(t, http.StatusOK, f.post(t, "/login", "", LoginRequest{Username: "bob", Password: "p4ssword-new"}).Code)
	})

	t.Run("unauthenticated change is rejected", func(t *testing.T) {
		w := f.request(t, http.MethodPut, "/password", "", PasswordChangeRequest{
			CurrentPassword: "p4ssword-new",
			NewPassword:     "whatever-else",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPostLogoutAndRefresh(t *testing.T) {
	f := newTestFixture(t)

	var login AuthenticatedResponse
	decodeBody(t, f.post(t, "/login", "", LoginRequest{Username: "bob", Password: "p4ssword-bob"}), &login)

	// Refresh returns a fresh token bound to the same session
	w := f.post(t, "/refresh", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed AuthenticatedResponse
	decodeBody(t, w, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, login.SessionID, refreshed.SessionID)

	// Logout succeeds, then refresh fails on the dead session
	require.Equal(t, http.StatusOK, f.post(t, "/logout", login.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.post(t, "/refresh", login.Token, nil).Code)

	// Unauthenticated logout is rejected by the verifier
	assert.Equal(t, http.StatusUnauthorized, f.post(t, "/logout", "", nil).Code)
}
