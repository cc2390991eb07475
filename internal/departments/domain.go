package departments

// Department is a node in the organizational tree. Path holds the ids from
// root to self, so len(Path) == Level+1 and the last element is the
// department's own id. System departments are protected from deletion by the
// management layer; this core only reads them.
type Department struct {
	ID                        int64
	ParentDepartmentID        *int64
	Path                      []int64
	Level                     int
	IsSystem                  bool
	IsVisible                 bool
	RequireExplicitMembership bool
	IsActive                  bool
}

// IsRoot reports whether the department has no parent.
func (d Department) IsRoot() bool {
	return d.ParentDepartmentID == nil
}
