package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
)

// ExtraClaims is the extra_claims payload of a console access token
type ExtraClaims struct {
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	SessionBearer string `json:"session_bearer,omitempty"`
}

// AuthUser is the authenticated principal resolved from a verified access
// token. SessionBearer ties the token back to its server-side session.
type AuthUser struct {
	Username      string `json:"username"`
	Role          string `json:"role,omitempty"`
	SessionBearer string `json:"session_bearer,omitempty"`
}

// LogValue keeps the session bearer out of log output
func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", u.Username),
		slog.String("role", u.Role),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "console-auth context value " + k.name
}

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

// LoadFromMap decodes a claims map into a typed struct via JSON
func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// Verifier seeks, verifies and stores the JWT from the Authorization header
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verifier(ja)
}

// AuthUserMiddleware resolves the verified JWT claims into an AuthUser and
// stores it on the request context. Must run after Verifier.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, jwtClaims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("missing or invalid JWT: %v", err), http.StatusUnauthorized)
			return
		}
		if jwtClaims == nil {
			http.Error(w, "missing JWT claims", http.StatusUnauthorized)
			return
		}

		authUser := new(AuthUser)

		if extraClaimsRaw, exists := jwtClaims["extra_claims"]; exists {
			extraClaims, ok := extraClaimsRaw.(map[string]interface{})
			if !ok {
				http.Error(w, "invalid extra claims format", http.StatusUnauthorized)
				return
			}
			if err := LoadFromMap(extraClaims, authUser); err != nil {
				slog.Error("failed to parse extra claims", "error", err)
				http.Error(w, "invalid extra claims data", http.StatusUnauthorized)
				return
			}
		}

		// Subject is authoritative for the username
		if sub, ok := jwtClaims["sub"].(string); ok && sub != "" {
			authUser.Username = sub
		}
		if authUser.Username == "" {
			http.Error(w, "token carries no subject", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AuthUserKey, authUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
