package domain

// Role enumerates the acting user's capability set.
type Role string

const (
	RoleEmployee   Role = "empleado"
	RoleTechnician Role = "tecnico"
	RoleAdmin      Role = "administrador"
	// RoleSystem is used for transitions driven by the automatic sweep.
	RoleSystem     Role = "sistema"
)

// Valid reports whether r can be carried by a session.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// Principal is the acting user supplied by the identity collaborator.
type Principal struct {
	UserID int64
	Name   string
	Role   Role
}

// SystemPrincipal is the actor recorded for automatic transitions.
var SystemPrincipal = Principal{Name: "system", Role: RoleSystem}
