package main

import (
	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

// seedDemoCatalog loads a small catalog so the in-memory store is usable
// without a database.
func seedDemoCatalog(store *memory.Store) {
	ana := store.AddTechnician(domain.Technician{ID: 1, Name: "Ana Torres", Email: "ana@example.com", Active: true})
	luis := store.AddTechnician(domain.Technician{ID: 2, Name: "Luis Paredes", Email: "luis@example.com", Active: true})
	marta := store.AddTechnician(domain.Technician{ID: 3, Name: "Marta Rojas", Email: "marta@example.com", Active: true})

	store.AddSpecialty(domain.Specialty{TechnicianID: ana, Area: assignment.AreaInternet, Level: domain.ExpertisePrincipal, Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: luis, Area: assignment.AreaInternet, Level: domain.ExpertiseSecondary, Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: luis, Area: assignment.AreaNetwork, Level: domain.ExpertisePrincipal, Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: marta, Area: assignment.AreaEquipment, Level: domain.ExpertisePrincipal, Active: true})
	store.AddSpecialty(domain.Specialty{TechnicianID: marta, Area: assignment.AreaSoftware, Level: domain.ExpertiseSupport, Active: true})

	internet := store.AddService(domain.Service{
		ID:                 10,
		Category:           "Internet",
		Subcategory:        "Sin conexión",
		TargetTime:         "2 días",
		MaximumTime:        "3 días",
		DefaultPriority:    domain.TicketPriorityHigh,
		InitialResponsible: domain.DefaultUnassignedSentinel,
		Active:             true,
	})
	store.AddService(domain.Service{
		ID:                 11,
		Category:           "Impresoras",
		Subcategory:        "Atasco de papel",
		TargetTime:         "04:00",
		DefaultPriority:    domain.TicketPriorityMedium,
		InitialResponsible: "Marta Rojas",
		Active:             true,
	})
	store.AddService(domain.Service{
		ID:                 12,
		Category:           "Mobiliario",
		Subcategory:        "Silla rota",
		TargetTime:         "5 días",
		DefaultPriority:    domain.TicketPriorityLow,
		InitialResponsible: domain.DefaultUnassignedSentinel,
		Active:             true,
	})

	store.AddRule(domain.AssignmentRule{
		ServiceID:   &internet,
		Area:        assignment.AreaInternet,
		Priority:    domain.TicketPriorityCritical,
		PrincipalID: &luis,
		SecondaryID: &ana,
		MaxLoad:     5,
		Active:      true,
	})
}
