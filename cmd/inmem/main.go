// Package main runs the console authentication service without a database
// using in-memory repositories. Useful for local development and for poking
// at the API without Postgres. All state is lost on exit.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/tendant/chi-demo/app"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/authflow"
	authflowapi "github.com/gla1v3/console-auth/pkg/authflow/api"
	"github.com/gla1v3/console-auth/pkg/pendingauth"
	"github.com/gla1v3/console-auth/pkg/router"
	"github.com/gla1v3/console-auth/pkg/sessions"
	sessionsapi "github.com/gla1v3/console-auth/pkg/sessions/api"
	tg "github.com/gla1v3/console-auth/pkg/tokengenerator"
	"github.com/gla1v3/console-auth/pkg/twofa"
	twofaapi "github.com/gla1v3/console-auth/pkg/twofa/api"
)

const (
	jwtSecret = "inmem-dev-secret-change-in-production"
	issuer    = "console-auth"
	audience  = "gla1v3-console"

	seedUsername = "admin"
	seedPassword = "admin-dev-password"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory console auth service (no database required)")

	accountRepo := account.NewInMemoryRepository()
	accountService := account.NewService(accountRepo, nil)
	twoFaService := twofa.NewTwoFaService(accountRepo, nil)
	pendingService := pendingauth.NewService(pendingauth.NewInMemoryRepository())
	sessionService := sessions.NewService(sessions.NewInMemoryRepository())

	generator := tg.NewJwtTokenGenerator(jwtSecret, issuer, audience)
	jwtService := tg.NewJwtService(
		tg.WithTokenGenerator(tg.ACCESS_TOKEN_NAME, generator),
		tg.WithDefaultTokenGenerator(generator),
	)

	seedAdminAccount(accountService)

	flow := authflow.NewAuthFlowService(accountService, twoFaService, pendingService, sessionService, jwtService, nil)

	server := app.DefaultApp()
	router.SetupRoutes(server.R, router.Config{
		AuthFlowHandle: authflowapi.NewHandle(flow),
		TwoFaHandle:    twofaapi.NewHandle(twoFaService),
		SessionHandle:  sessionsapi.NewHandler(sessionService),
		TokenAuth:      jwtauth.New("HS256", []byte(jwtSecret), nil),
		SessionService: sessionService,
		AccountService: accountService,
	})

	slog.Info("Seeded account", "username", seedUsername, "password", seedPassword)
	slog.Info("Try: curl -X POST localhost:4000/api/auth/login -d '{\"username\":\"admin\",\"password\":\"admin-dev-password\"}'")

	server.Run()
}

func seedAdminAccount(accountService *account.Service) {
	_, err := accountService.CreateAccount(context.Background(), account.CreateParams{
		Username: seedUsername,
		Password: seedPassword,
		Role:     "admin",
	})
	if err != nil {
		slog.Error("Failed seeding admin account", "err", err)
		os.Exit(-1)
	}
}
