package domain

// ExpertiseLevel ranks a technician's competency in an area.
type ExpertiseLevel string

const (
	ExpertisePrincipal ExpertiseLevel = "principal"
	ExpertiseSecondary ExpertiseLevel = "secundario"
	ExpertiseSupport   ExpertiseLevel = "soporte"
)

// Rank orders levels; lower ranks win.
func (l ExpertiseLevel) Rank() int {
	switch l {
	case ExpertisePrincipal:
		return 0
	case ExpertiseSecondary:
		return 1
	case ExpertiseSupport:
		return 2
	}
	return 3
}

// Technician is a user who can hold tickets.
type Technician struct {
	ID     int64
	Name   string
	Email  string
	Active bool
}

// Specialty is a technician's declared competency in an area.
type Specialty struct {
	ID           int64
	TechnicianID int64
	Area         string
	Level        ExpertiseLevel
	Active       bool
}

// AssignmentRule overrides the generic ranking for an area (or a single service) and priority.
type AssignmentRule struct {
	ID          int64
	ServiceID   *int64
	Area        string
	Priority    TicketPriority
	PrincipalID *int64
	SecondaryID *int64
	SupportID   *int64
	// MaxLoad of zero or less disables the load threshold.
	MaxLoad     int
	Active      bool
}
