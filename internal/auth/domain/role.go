package domain

// Role is the ordered set of SysDesk roles. The order is total: every
// authorization decision reduces to an integer rank comparison, and an
// inviter can never grant a role ranked above their own.
type Role string

const (
	RoleClient      Role = "client"
	RoleOperator    Role = "operator"
	RoleAdmin       Role = "admin"
	RoleMasterAdmin Role = "master_admin"
)

var roleRanks = map[Role]int{
	RoleClient:      1,
	RoleOperator:    2,
	RoleAdmin:       3,
	RoleMasterAdmin: 4,
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles
// so that an unrecognised role never outranks anything.
func (r Role) Rank() int {
	return roleRanks[r]
}

// CanManage reports whether r may act on target: equal or lower rank only.
func (r Role) CanManage(target Role) bool {
	return r.Valid() && target.Valid() && r.Rank() >= target.Rank()
}

// AuthzMode selects how a required-role set is interpreted.
type AuthzMode string

const (
	// ModeHierarchical grants access to any role ranked at or above the
	// lowest required role. This is the default.
	ModeHierarchical AuthzMode = "hierarchical"

	// ModeExact requires literal membership in the required set.
	ModeExact AuthzMode = "exact"
)

// Authorize decides whether actor satisfies the required role set under the
// given mode. Pure function, invoked explicitly at the top of handlers.
func Authorize(actor Role, required []Role, mode AuthzMode) bool {
	if !actor.Valid() || len(required) == 0 {
		return false
	}

	if mode == ModeExact {
		for _, want := range required {
			if actor == want {
				return true
			}
		}
		return false
	}

	minRank := 0
	for _, want := range required {
		if !want.Valid() {
			continue
		}
		if minRank == 0 || want.Rank() < minRank {
			minRank = want.Rank()
		}
	}
	return minRank > 0 && actor.Rank() >= minRank
}
