// Package authflow orchestrates the console's two-phase authentication:
// password login, then TOTP or backup code, then a session credential.
//
// # Overview
//
// The flow is a state machine per login attempt:
//
//	Unauthenticated --ProcessLogin--> PendingSecondFactor
//	PendingSecondFactor --ProcessTwoFactorVerification--> Authenticated
//
// Accounts without two-factor enrollment skip the middle state. The
// orchestrator itself is stateless; pending tokens, attempt budgets,
// backup-code consumption and sessions all live in their storage layers,
// which is where concurrent requests are serialized.
//
// # Basic Usage
//
//	flow := authflow.NewAuthFlowService(accountService, twoFaService,
//		pendingService, sessionService, jwtService, nil)
//
//	result := flow.ProcessLogin(ctx, authflow.Request{
//		Username: "alice", Password: pw, IPAddress: ip,
//	})
//	switch {
//	case result.RequiresTwoFA:
//		// hand result.PendingToken to the client
//	case result.Success:
//		// result.Session, result.AccessToken
//	default:
//		// result.ErrorResponse.Type, e.g. authflow.ErrorTypeInvalidCredentials
//	}
//
// # Failure Semantics
//
// Unknown usernames and wrong passwords both yield
// ErrorTypeInvalidCredentials; the caller cannot tell which usernames
// exist. Failed second factors spend the pending token's attempt budget;
// the budget exhausting invalidates the token and, when a notifier is
// configured, raises an operator alert. A replayed backup code yields
// ErrorTypeBackupCodeAlreadyUsed, still spending an attempt.
package authflow
