package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/gla1v3/console-auth/pkg/account"
	authflowapi "github.com/gla1v3/console-auth/pkg/authflow/api"
	"github.com/gla1v3/console-auth/pkg/client"
	"github.com/gla1v3/console-auth/pkg/ratelimit"
	"github.com/gla1v3/console-auth/pkg/sessions"
	sessionsapi "github.com/gla1v3/console-auth/pkg/sessions/api"
	twofaapi "github.com/gla1v3/console-auth/pkg/twofa/api"
)

// Route prefixes for the console authentication API
const (
	AuthPrefix     = "/api/auth"
	TwoFaPrefix    = AuthPrefix + "/2fa"
	SessionsPrefix = AuthPrefix + "/sessions"

	LoginPath  = AuthPrefix + "/login"
	VerifyPath = TwoFaPrefix + "/verify"
)

// Config holds the handlers and middleware needed to set up routes
type Config struct {
	AuthFlowHandle *authflowapi.Handle
	TwoFaHandle    *twofaapi.Handle
	SessionHandle  *sessionsapi.Handler

	TokenAuth      *jwtauth.JWTAuth
	SessionService *sessions.Service
	AccountService *account.Service

	// Optional: per-IP throttling of the whole surface plus tighter
	// budgets on login and verification
	RateLimit *ratelimit.Middleware
}

// SetupRoutes mounts the console authentication routes. Login and
// second-factor verification are public; everything else requires a valid
// access token backed by a live session.
//
// Everything rides on an inline group: the caller's mux may already carry
// routes (readiness endpoints and the like), and chi rejects Use on a mux once a
// route is registered.
func SetupRoutes(router chi.Router, cfg Config) {
	router.Group(func(g chi.Router) {
		g.Use(RequestLogger)
		if cfg.RateLimit != nil {
			g.Use(cfg.RateLimit.Handler)
		}

		g.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			render.PlainText(w, r, http.StatusText(http.StatusOK))
		})

		// Public: the two unauthenticated steps of the flow. The explicit
		// verify route takes precedence over the enrollment mount below it.
		g.Post(LoginPath, cfg.AuthFlowHandle.PostLogin)
		g.Post(VerifyPath, cfg.AuthFlowHandle.PostVerify)

		g.Group(func(r chi.Router) {
			r.Use(client.Verifier(cfg.TokenAuth))
			r.Use(client.AuthUserMiddleware)
			r.Use(client.SessionMiddleware(cfg.SessionService))

			r.Post(AuthPrefix+"/logout", cfg.AuthFlowHandle.PostLogout)
			r.Post(AuthPrefix+"/refresh", cfg.AuthFlowHandle.PostRefresh)
			r.Put(AuthPrefix+"/password", cfg.AuthFlowHandle.PutPassword)

			r.Mount(TwoFaPrefix, twofaapi.Handler(cfg.TwoFaHandle))

			sessionRouter := chi.NewRouter()
			cfg.SessionHandle.RegisterRoutes(sessionRouter)
			r.Mount(SessionsPrefix, sessionRouter)

			r.Get(AuthPrefix+"/me", func(w http.ResponseWriter, r *http.Request) {
				authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
				if !ok {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				render.JSON(w, r, map[string]string{
					"username": authUser.Username,
					"role":     authUser.Role,
				})
			})

			r.With(client.RequireRole("admin")).
				Get(AuthPrefix+"/accounts", listAccountsHandler(cfg.AccountService))
		})
	})
}

// accountSummary is the admin-facing view of an account. Hashes and TOTP
// secrets never leave the account package through this surface.
type accountSummary struct {
	Username         string    `json:"username"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	BackupCodesLeft  int       `json:"backupCodesLeft"`
	CreatedAt        time.Time `json:"createdAt"`
}

func listAccountsHandler(accountService *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entities, err := accountService.ListAccounts(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		summaries := make([]accountSummary, 0, len(entities))
		for _, e := range entities {
			summaries = append(summaries, accountSummary{
				Username:         e.Username,
				Role:             e.Role,
				TwoFactorEnabled: e.TwoFactorEnabled,
				BackupCodesLeft:  len(e.UnusedBackupCodes()),
				CreatedAt:        e.CreatedAt,
			})
		}
		render.JSON(w, r, summaries)
	}
}
