package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ServiceRepository reads the service catalog.
type ServiceRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
}

// TechnicianRepository reads technicians and the data the selector ranks over.
type TechnicianRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Technician, error)
	List(ctx context.Context) ([]domain.Technician, error)
	ListSpecialties(ctx context.Context, area string) ([]domain.Specialty, error)
	ListRules(ctx context.Context, area string) ([]domain.AssignmentRule, error)
}

type serviceRepository struct {
	db DBTX
}

// NewServiceRepository builds repository.
func NewServiceRepository(db DBTX) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	const query = `
        SELECT id, category, subcategory, target_time, maximum_time, default_priority,
               initial_responsible, escalation_responsible, requires_approval_letter, active
        FROM services WHERE id=$1`
	var svc domain.Service
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&svc.ID,
		&svc.Category,
		&svc.Subcategory,
		&svc.TargetTime,
		&svc.MaximumTime,
		&svc.DefaultPriority,
		&svc.InitialResponsible,
		&svc.EscalationResponsible,
		&svc.RequiresApprovalLetter,
		&svc.Active,
	); err != nil {
		return nil, err
	}
	return &svc, nil
}

type technicianRepository struct {
	db DBTX
}

// NewTechnicianRepository builds repository.
func NewTechnicianRepository(db DBTX) TechnicianRepository {
	return &technicianRepository{db: db}
}

func (r *technicianRepository) GetByID(ctx context.Context, id int64) (*domain.Technician, error) {
	const query = `SELECT id, name, email, active FROM technicians WHERE id=$1`
	var tech domain.Technician
	if err := r.db.QueryRow(ctx, query, id).Scan(&tech.ID, &tech.Name, &tech.Email, &tech.Active); err != nil {
		return nil, err
	}
	return &tech, nil
}

func (r *technicianRepository) List(ctx context.Context) ([]domain.Technician, error) {
	const query = `SELECT id, name, email, active FROM technicians ORDER BY name ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var tech domain.Technician
		if err := rows.Scan(&tech.ID, &tech.Name, &tech.Email, &tech.Active); err != nil {
			return nil, err
		}
		result = append(result, tech)
	}
	return result, rows.Err()
}

func (r *technicianRepository) ListSpecialties(ctx context.Context, area string) ([]domain.Specialty, error) {
	const query = `
        SELECT id, technician_id, area, level, active
        FROM technician_specialties WHERE UPPER(area)=UPPER($1) ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Specialty
	for rows.Next() {
		var sp domain.Specialty
		if err := rows.Scan(&sp.ID, &sp.TechnicianID, &sp.Area, &sp.Level, &sp.Active); err != nil {
			return nil, err
		}
		result = append(result, sp)
	}
	return result, rows.Err()
}

func (r *technicianRepository) ListRules(ctx context.Context, area string) ([]domain.AssignmentRule, error) {
	const query = `
        SELECT id, service_id, area, priority, principal_id, secondary_id, support_id, max_load, active
        FROM assignment_rules WHERE UPPER(area)=UPPER($1) OR service_id IS NOT NULL ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		var rule domain.AssignmentRule
		if err := rows.Scan(
			&rule.ID,
			&rule.ServiceID,
			&rule.Area,
			&rule.Priority,
			&rule.PrincipalID,
			&rule.SecondaryID,
			&rule.SupportID,
			&rule.MaxLoad,
			&rule.Active,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
