package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an active console session. The bearer is the opaque
// credential the client presents; everything else is server-side state.
type Session struct {
	ID           uuid.UUID  `json:"id"`
	Bearer       string     `json:"-"`
	Username     string     `json:"username"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	LastActivity time.Time  `json:"last_activity"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SessionMeta carries client attributes captured at issuance
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// SessionSummary is a simplified session view for listing. The bearer is
// never included; a listed session cannot be hijacked from the listing.
type SessionSummary struct {
	ID           uuid.UUID `json:"id"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	IssuedAt     time.Time `json:"issued_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
}

// SessionListResponse represents the response for listing sessions
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

// Expired reports whether the session is past its expiry at the given time
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Revoked reports whether the session has been revoked
func (s Session) Revoked() bool {
	return s.RevokedAt != nil
}
