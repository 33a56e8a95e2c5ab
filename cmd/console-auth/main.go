package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/authflow"
	authflowapi "github.com/gla1v3/console-auth/pkg/authflow/api"
	"github.com/gla1v3/console-auth/pkg/config"
	"github.com/gla1v3/console-auth/pkg/notice"
	"github.com/gla1v3/console-auth/pkg/notification"
	"github.com/gla1v3/console-auth/pkg/pendingauth"
	"github.com/gla1v3/console-auth/pkg/ratelimit"
	"github.com/gla1v3/console-auth/pkg/router"
	"github.com/gla1v3/console-auth/pkg/sessions"
	sessionsapi "github.com/gla1v3/console-auth/pkg/sessions/api"
	tg "github.com/gla1v3/console-auth/pkg/tokengenerator"
	"github.com/gla1v3/console-auth/pkg/twofa"
	twofaapi "github.com/gla1v3/console-auth/pkg/twofa/api"
)

const maintenanceInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed loading config", "err", err)
		os.Exit(-1)
	}

	server := app.DefaultApp()

	dbConfig := cfg.Database.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	accountRepo := account.NewPostgresRepository(pool)
	accountService := account.NewService(accountRepo, nil)
	twoFaService := twofa.NewTwoFaService(accountRepo, nil)

	pendingTTL, err := cfg.Pending.ParseTTL()
	if err != nil {
		slog.Error("Invalid pending token TTL", "value", cfg.Pending.TTL, "err", err)
		os.Exit(-1)
	}
	pendingService := pendingauth.NewService(
		pendingauth.NewPostgresRepository(pool),
		pendingauth.WithTTL(pendingTTL),
		pendingauth.WithMaxAttempts(cfg.Pending.MaxAttempts),
	)

	sessionTTL, err := cfg.Session.ParseTTL()
	if err != nil {
		slog.Error("Invalid session TTL", "value", cfg.Session.TTL, "err", err)
		os.Exit(-1)
	}
	sessionService := sessions.NewService(
		sessions.NewPostgresRepository(pool),
		sessions.WithTTL(sessionTTL),
	)

	accessTokenExpiry, err := cfg.JWT.ParseAccessTokenExpiry()
	if err != nil {
		slog.Error("Invalid access token expiry", "value", cfg.JWT.AccessTokenExpiry, "err", err)
		os.Exit(-1)
	}
	generator := tg.NewJwtTokenGenerator(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	jwtService := tg.NewJwtService(
		tg.WithTokenGenerator(tg.ACCESS_TOKEN_NAME, generator),
		tg.WithDefaultTokenGenerator(generator),
		tg.WithAccessTokenExpiry(accessTokenExpiry),
	)

	var notifier authflow.SecurityNotifier
	if cfg.Email.AlertsEnabled() {
		manager, err := notification.NewNotificationManager(
			notification.WithSMTP(cfg.Email.ToSMTPConfig()),
			notification.WithDefaultTemplates(),
		)
		if err != nil {
			slog.Error("Failed creating notification manager", "err", err)
			os.Exit(-1)
		}
		notifier = notice.NewService(manager, cfg.Email.OperatorEmail)
		slog.Info("Operator alerts enabled", "to", cfg.Email.OperatorEmail)
	} else {
		slog.Warn("OPERATOR_EMAIL not set, operator alerts disabled")
	}

	flow := authflow.NewAuthFlowService(accountService, twoFaService, pendingService, sessionService, jwtService, notifier)

	var rateLimiter *ratelimit.Middleware
	if mc := cfg.RateLimit.ToMiddlewareConfig(); mc != nil {
		rateLimiter = ratelimit.NewMiddleware(mc, router.LoginPath, router.VerifyPath)
	}

	router.SetupRoutes(server.R, router.Config{
		AuthFlowHandle: authflowapi.NewHandle(flow),
		TwoFaHandle:    twofaapi.NewHandle(twoFaService),
		SessionHandle:  sessionsapi.NewHandler(sessionService),
		TokenAuth:      jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil),
		SessionService: sessionService,
		AccountService: accountService,
		RateLimit:      rateLimiter,
	})

	go runMaintenance(context.Background(), pendingService, sessionService)

	server.Run()
}

// runMaintenance periodically sweeps expired pending tokens and dead
// sessions so the tables do not grow without bound
func runMaintenance(ctx context.Context, pendingService *pendingauth.Service, sessionService *sessions.Service) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := pendingService.DeleteExpired(ctx); err != nil {
				slog.Error("Pending token sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("Swept expired pending tokens", "count", n)
			}
			if n, err := sessionService.CleanupExpired(ctx); err != nil {
				slog.Error("Session sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("Swept expired sessions", "count", n)
			}
			if n, err := sessionService.CleanupRevoked(ctx); err != nil {
				slog.Error("Revoked session sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("Purged old revoked sessions", "count", n)
			}
		}
	}
}
