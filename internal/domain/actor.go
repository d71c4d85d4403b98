package domain

// Roles known to the console.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Actor is the signed-in staff member performing an edit.
type Actor struct {
	UID  string `json:"uid" yaml:"uid"`
	Name string `json:"name,omitempty" yaml:"name"`
	Role string `json:"role" yaml:"role"`
}

// IsAdmin reports whether new records from this actor skip the review queue.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
