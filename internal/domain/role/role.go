// Package role provides the instrument role value object.
package role

// Role represents an instrument role a player can take in a jam session
// (e.g. drums, bass, lead). Identity is the ID alone; the remaining fields
// are presentation metadata carried along for clients.
type Role struct {
	ID     string `mapstructure:"id" json:"id"`         // Role identifier
	Name   string `mapstructure:"name" json:"name"`     // Display name
	Color  string `mapstructure:"color" json:"color"`   // Display color (hex)
	Unique bool   `mapstructure:"unique" json:"unique"` // At most one player per session may hold a unique role
}

// Equal reports whether two roles are the same role.
// Roles are compared by ID only.
func (r Role) Equal(other Role) bool {
	return r.ID == other.ID
}

// IsZero reports whether the role is unset.
func (r Role) IsZero() bool {
	return r.ID == ""
}
