package lookup

// Category partitions lookup values. Only the two categories the
// authorization core consumes are modeled.
type Category string

const (
	CategoryUserType Category = "userType"
	CategoryRole     Category = "role"
)

// Value is a single row of the lookup table. Role rows reference their
// userType row through ParentLookupID; a role whose parent is missing or not
// a userType is excluded from the per-category role sets.
type Value struct {
	LookupID       string
	Category       Category
	Key            string
	ParentLookupID string
	DisplayAs      string
	IsActive       bool
	SortOrder      int
}

// Hydrated pairs a raw key with its display text.
type Hydrated struct {
	Key       string `json:"key"`
	DisplayAs string `json:"displayAs"`
}
