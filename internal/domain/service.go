package domain

import "strings"

// DefaultUnassignedSentinel marks a service whose tickets start in the unassigned pool.
const DefaultUnassignedSentinel = "RITO"

// Service is a catalog entry a ticket is raised against.
type Service struct {
	ID                     int64
	Category               string
	Subcategory            string
	TargetTime             string
	MaximumTime            string
	DefaultPriority        TicketPriority
	InitialResponsible     string
	EscalationResponsible  string
	RequiresApprovalLetter bool
	Active                 bool
}

// InitialResponsibleIsPool reports whether the initial responsible resolves to the unassigned pool.
func (s *Service) InitialResponsibleIsPool(sentinel string) bool {
	if sentinel == "" {
		sentinel = DefaultUnassignedSentinel
	}
	value := strings.TrimSpace(s.InitialResponsible)
	return value == "" || strings.EqualFold(value, sentinel)
}
