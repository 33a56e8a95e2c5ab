// Package pendingauth manages the short-lived tokens that bridge password
// verification and second-factor verification.
//
// # Overview
//
// A pending token is an opaque 32-character hex string handed to the client
// after a correct password. The server stores the real state: the username,
// an expiry, and an attempt budget. Possessing a pending token grants
// nothing except the right to attempt a second factor; it is not a session
// and carries no claims.
//
// # Basic Usage
//
//	svc := pendingauth.NewService(pendingauth.NewInMemoryRepository(),
//		pendingauth.WithTTL(5*time.Minute),
//		pendingauth.WithMaxAttempts(5),
//	)
//
//	token, err := svc.Issue(ctx, "alice")
//	// ... client comes back with the token and a passcode ...
//	token, err = svc.Validate(ctx, tokenID)
//	remaining, err := svc.ConsumeAttempt(ctx, tokenID) // on a failed factor
//	err = svc.Invalidate(ctx, tokenID)                 // on success
//
// # Attempt Accounting
//
// Every failed second-factor check consumes one attempt. The storage layer
// decrements atomically, so concurrent verifications of the same token
// cannot stretch the budget. When the final attempt is consumed the token is
// deleted and ErrAttemptsExhausted is returned; the client must restart the
// login from the password step.
package pendingauth
