package domain

import "time"

// Escalation is one append-only reassignment record.
type Escalation struct {
	ID               int64
	TicketID         int64
	FromTechnicianID *int64
	ToTechnicianID   int64
	ToTechnicianName string
	Reason           string
	EscalatedBy      int64
	CreatedAt        time.Time
}

// Reopen tracks a requester-initiated reactivation cycle.
type Reopen struct {
	ID          int64
	TicketID    int64
	Cycle       int
	Observation string
	RequestedBy int64
	Cause       string
	RespondedAt *time.Time
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Resolved is true once the cycle's evaluation has been recorded.
func (r *Reopen) Resolved() bool {
	return r.ResolvedAt != nil
}

// Answered is true once the technician supplied a cause.
func (r *Reopen) Answered() bool {
	return r.RespondedAt != nil
}

// Evaluation is the requester's rating for one cycle of a ticket.
type Evaluation struct {
	ID          int64
	TicketID    int64
	Cycle       int
	Rating      int
	Comment     string
	EvaluatorID int64
	CreatedAt   time.Time
}
