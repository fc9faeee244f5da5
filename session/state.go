package session

import "github.com/jrsteele09/go-auth-client/users"

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle            Status = "idle"            // nothing attempted yet
	StatusAuthenticating  Status = "authenticating"  // login or register in flight
	StatusRecovering      Status = "recovering"      // startup recovery in flight
	StatusAuthenticated   Status = "authenticated"   // user and token both present
	StatusUnauthenticated Status = "unauthenticated" // explicit failure, logout, or terminal refresh failure
)

// Session is the client's authoritative record of who is logged in. A user is
// never present without a usable access token; the inverse does not hold
// during the window between obtaining a token and fetching the profile.
type Session struct {
	User        *users.User
	AccessToken string
	Status      Status
	LastError   string
}

// Authenticated returns true when a user is logged in.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// clone returns a deep copy so callers can never alias engine-owned state.
func (s Session) clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
