package roles

// RoleDefinition maps a role name to the access rights it grants. Rights may
// contain the two supported wildcard shapes; they are validated when the
// definition is stored, not when it is matched.
type RoleDefinition struct {
	Name         string
	AccessRights []string
	IsActive     bool
}

// DepartmentMembership ties a user to a department with a set of roles.
type DepartmentMembership struct {
	DepartmentID int64
	Roles        []string
	IsPrimary    bool
}
