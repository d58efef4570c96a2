package auth

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can view every employee's attendance
	RoleEmployee Role = "employee" // Regular employee
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// CanViewAll reports whether the role may read other employees' records.
func (r Role) CanViewAll() bool {
	return r == RoleOwner || r == RoleManager
}
