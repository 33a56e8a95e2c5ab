package pendingauth

import "time"

// PendingToken is the server-side record behind the opaque token a client
// holds between password verification and second-factor verification. The
// token carries no claims; everything lives in this record.
type PendingToken struct {
	ID                string
	Username          string
	AttemptsRemaining int
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// Expired reports whether the token is past its expiry at the given time
func (t PendingToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
