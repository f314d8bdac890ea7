package domain

// Role is a closed set of user roles.
type Role string

const (
	// RoleUser can browse books and chat about them.
	RoleUser Role = "user"

	// RoleAdmin can additionally manage the catalogue.
	RoleAdmin Role = "admin"
)

// ParseRole returns the role named by s.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Permission is an action gated by role.
type Permission int

const (
	// PermReadBooks allows listing and viewing books.
	PermReadBooks Permission = iota

	// PermChat allows creating sessions and asking questions.
	PermChat

	// PermManageBooks allows creating, updating and deleting books.
	PermManageBooks

	// PermViewJobs allows inspecting ingestion job status.
	PermViewJobs
)

// Can reports whether the role grants the permission.
// Unknown roles are granted nothing.
func (r Role) Can(p Permission) bool {
	switch r {
	case RoleAdmin:
		switch p {
		case PermReadBooks, PermChat, PermManageBooks, PermViewJobs:
			return true
		}
	case RoleUser:
		switch p {
		case PermReadBooks, PermChat:
			return true
		case PermManageBooks, PermViewJobs:
			return false
		}
	}
	return false
}

// Principal is an authenticated caller.
type Principal struct {
	UserID int64
	Role   Role
}
