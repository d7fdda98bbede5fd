package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketEscalated     EventType = "ticket.escalated"
	EventTicketEvaluationDue EventType = "ticket.evaluation_due"
	EventTicketReopened      EventType = "ticket.reopened"
	EventTicketEvaluated     EventType = "ticket.evaluated"
)

// AllEventTypes lists every type the engine emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketStatusChanged,
	EventTicketEscalated,
	EventTicketEvaluationDue,
	EventTicketReopened,
	EventTicketEvaluated,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role"`
	UserID *int64      `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ServiceID   int64                 `json:"service_id"`
	Category    string                `json:"category"`
	Subcategory string                `json:"subcategory"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	DueAt       *time.Time            `json:"due_at,omitempty"`
}

// TicketAssignedPayload payload. TechnicianID is nil when the ticket went to the unassigned pool.
type TicketAssignedPayload struct {
	TechnicianID   *int64 `json:"technician_id,omitempty"`
	TechnicianName string `json:"technician_name,omitempty"`
	Source         string `json:"source"`
	Reason         string `json:"reason,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	AutoClosed bool                `json:"auto_closed,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationID     int64  `json:"escalation_id"`
	FromTechnicianID *int64 `json:"from_technician_id,omitempty"`
	ToTechnicianID   int64  `json:"to_technician_id"`
	Reason           string `json:"reason"`
}

// TicketEvaluationDuePayload payload.
type TicketEvaluationDuePayload struct {
	RequesterID int64     `json:"requester_id"`
	Cycle       int       `json:"cycle"`
	FinishedAt  time.Time `json:"finished_at"`
	// AutoCloseAt is when the sweep closes the ticket if no evaluation arrives.
	AutoCloseAt time.Time `json:"auto_close_at"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	Cycle       int    `json:"cycle"`
	Observation string `json:"observation"`
}

// TicketEvaluatedPayload payload.
type TicketEvaluatedPayload struct {
	Cycle  int `json:"cycle"`
	Rating int `json:"rating"`
}
