// Package sessions manages console session credentials.
//
// # Overview
//
// A session credential is an opaque random bearer minted only after the full
// two-phase authentication succeeds. The package provides:
//   - Session issuance with client metadata (IP, user agent)
//   - Bearer validation distinguishing absent, expired and revoked
//   - Revocation: single session, by bearer, or all sessions of a user
//   - Active session listing for the console's session management view
//   - Maintenance deletion of expired and old revoked sessions
//
// # Basic Usage
//
//	svc := sessions.NewService(sessions.NewInMemoryRepository(),
//		sessions.WithTTL(24*time.Hour))
//
//	session, err := svc.IssueSession(ctx, "alice", sessions.SessionMeta{
//		IPAddress: "203.0.113.7",
//		UserAgent: "Mozilla/5.0",
//	})
//
//	session, err = svc.ValidateBearer(ctx, bearer)
//	err = svc.RevokeByBearer(ctx, bearer) // logout
//
// Revocation is a soft delete. The row stays until maintenance removes it,
// so presenting a revoked bearer fails with ErrSessionRevoked instead of the
// generic not-found, which the audit trail wants to tell apart.
package sessions
