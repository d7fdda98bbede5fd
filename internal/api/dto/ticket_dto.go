package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ServiceID   int64  `json:"service_id"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ChangeStatusRequest payload. Reason and Estimate are required for
// Pendiente; TechnicianID and Reason for Escalado.
type ChangeStatusRequest struct {
	Status       domain.TicketStatus `json:"status"`
	Reason       string              `json:"reason"`
	Estimate     string              `json:"estimate"`
	TechnicianID *int64              `json:"technician_id"`
	Version      *int64              `json:"version"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	TechnicianID *int64 `json:"technician_id"`
	Reason       string `json:"reason"`
	Version      *int64 `json:"version"`
}

// ReopenRequest payload.
type ReopenRequest struct {
	Observation string `json:"observation"`
}

// RespondReopenRequest payload.
type RespondReopenRequest struct {
	Cause string `json:"cause"`
}

// EvaluateRequest payload.
type EvaluateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// TicketResponse is the ticket projection.
type TicketResponse struct {
	ID                 int64                 `json:"id"`
	RequesterID        int64                 `json:"requester_id"`
	ServiceID          int64                 `json:"service_id"`
	Category           string                `json:"category"`
	Subcategory        string                `json:"subcategory"`
	Description        string                `json:"description"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	TechnicianID       *int64                `json:"technician_id"`
	TechnicianName     string                `json:"technician_name,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	AssignedAt         *time.Time            `json:"assigned_at"`
	AttentionStartedAt *time.Time            `json:"attention_started_at"`
	FinishedAt         *time.Time            `json:"finished_at"`
	ClosedAt           *time.Time            `json:"closed_at"`
	AttentionSeconds   *int64                `json:"attention_seconds"`
	PendingReason      string                `json:"pending_reason,omitempty"`
	PendingEstimate    string                `json:"pending_estimate,omitempty"`
	AutoClosed         bool                  `json:"auto_closed"`
	ReopenCycle        int                   `json:"reopen_cycle"`
	SLA                string                `json:"sla"`
	TargetSLA          string                `json:"target_sla"`
	DueAt              *time.Time            `json:"due_at"`
	RemainingSeconds   *int64                `json:"remaining_seconds"`
	EnTiempo           *bool                 `json:"en_tiempo"`
	WithinTarget       *bool                 `json:"within_target"`
	Reopened           bool                  `json:"reopened"`
	AwaitingEvaluation bool                  `json:"awaiting_evaluation"`
	Version            int64                 `json:"version"`
	UpdatedAt          time.Time             `json:"updated_at"`
	CurrentEscalation  *EscalationResponse   `json:"current_escalation,omitempty"`
	OpenReopen         *ReopenResponse       `json:"open_reopen,omitempty"`
	Evaluation         *EvaluationResponse   `json:"evaluation,omitempty"`
}

// EscalationResponse entry.
type EscalationResponse struct {
	ID               int64     `json:"id"`
	FromTechnicianID *int64    `json:"from_technician_id"`
	ToTechnicianID   int64     `json:"to_technician_id"`
	ToTechnicianName string    `json:"to_technician_name"`
	Reason           string    `json:"reason"`
	EscalatedBy      int64     `json:"escalated_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReopenResponse entry.
type ReopenResponse struct {
	Cycle       int        `json:"cycle"`
	Observation string     `json:"observation"`
	Cause       string     `json:"cause,omitempty"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EvaluationResponse entry.
type EvaluationResponse struct {
	Cycle     int       `json:"cycle"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistoryResponse entry.
type TicketHistoryResponse struct {
	ID            int64          `json:"id"`
	ChangedByRole domain.Role    `json:"changed_by_role"`
	ChangedByID   *int64         `json:"changed_by_id"`
	ChangeType    string         `json:"change_type"`
	OldValue      map[string]any `json:"old_value"`
	NewValue      map[string]any `json:"new_value"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RemainingTimeResponse is the SLA countdown.
type RemainingTimeResponse struct {
	TicketID         int64      `json:"ticket_id"`
	DueAt            *time.Time `json:"due_at"`
	RemainingSeconds *int64     `json:"remaining_seconds"`
	Overdue          bool       `json:"overdue"`
}

// SelectionResponse is a technician suggestion.
type SelectionResponse struct {
	Assigned       bool   `json:"assigned"`
	TechnicianID   *int64 `json:"technician_id"`
	TechnicianName string `json:"technician_name,omitempty"`
	Area           string `json:"area"`
	Source         string `json:"source"`
	Reason         string `json:"reason,omitempty"`
}
