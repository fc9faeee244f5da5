package users

// RoleType represents a user's role as reported by the auth backend
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleUser  RoleType = "user"
)

// User is the profile record returned by the auth backend. The client stores
// it by value and never mutates its fields; the backend is the source of truth.
type User struct {
	ID    string   `json:"id,omitempty"`    // Unique identifier for the user
	Name  string   `json:"name,omitempty"`  // Display name
	Email string   `json:"email,omitempty"` // User's email address
	Role  RoleType `json:"role,omitempty"`  // Role assigned by the backend
}

// IsAdmin returns true if the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
