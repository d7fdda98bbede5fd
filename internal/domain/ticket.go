package domain

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Abierto"
	TicketStatusPending    TicketStatus = "Pendiente"
	TicketStatusInProgress TicketStatus = "En Progreso"
	TicketStatusEscalated  TicketStatus = "Escalado"
	TicketStatusFinished   TicketStatus = "Finalizado"
	TicketStatusClosed     TicketStatus = "Cerrado"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusInProgress,
		TicketStatusEscalated, TicketStatusFinished, TicketStatusClosed:
		return true
	}
	return false
}

// Operational is true for the statuses a technician works the ticket in.
func (s TicketStatus) Operational() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusInProgress, TicketStatusEscalated:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "baja"
	TicketPriorityMedium   TicketPriority = "media"
	TicketPriorityHigh     TicketPriority = "alta"
	TicketPriorityCritical TicketPriority = "crítica"
)

// ParsePriority accepts the stored spelling as well as the unaccented one.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "baja":
		return TicketPriorityLow, true
	case "media":
		return TicketPriorityMedium, true
	case "alta":
		return TicketPriorityHigh, true
	case "crítica", "critica":
		return TicketPriorityCritical, true
	}
	return "", false
}

// Ticket is the aggregate for help-desk requests.
type Ticket struct {
	ID             int64
	RequesterID    int64
	ServiceID      int64
	Category       string
	Subcategory    string
	Description    string
	Priority       TicketPriority
	Status         TicketStatus
	TechnicianID   *int64
	TechnicianName string

	CreatedAt          time.Time
	AssignedAt         *time.Time
	AttentionStartedAt *time.Time
	FinishedAt         *time.Time
	ClosedAt           *time.Time
	// AttentionSeconds is frozen the first time the ticket reaches Finalizado or Cerrado.
	AttentionSeconds   *int64

	PendingReason   string
	PendingEstimate string
	PendingSetAt    *time.Time

	AutoClosed  bool
	ReopenCycle int

	// SLA is the enforcement bound (maximum time when configured, else target time).
	SLA       sla.Objective
	TargetSLA sla.Objective
	DueAt     *time.Time

	Version   int64
	UpdatedAt time.Time
}

// Active reports whether the ticket still counts toward technician load.
func (t *Ticket) Active() bool {
	return t.Status.Operational()
}

// AssignedTo reports whether the ticket is currently held by technicianID.
func (t *Ticket) AssignedTo(technicianID int64) bool {
	return t.TechnicianID != nil && *t.TechnicianID == technicianID
}

// FreezeAttention stores the attention duration unless it is already set.
func (t *Ticket) FreezeAttention(at time.Time) {
	if t.AttentionSeconds != nil {
		return
	}
	start := t.CreatedAt
	if t.AttentionStartedAt != nil {
		start = *t.AttentionStartedAt
	}
	secs := int64(at.Sub(start) / time.Second)
	if secs < 0 {
		secs = 0
	}
	t.AttentionSeconds = &secs
}

// ClearPending drops the pending fields once the ticket leaves Pendiente.
func (t *Ticket) ClearPending() {
	t.PendingReason = ""
	t.PendingEstimate = ""
	t.PendingSetAt = nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.TechnicianID = cloneInt64(t.TechnicianID)
	cp.AssignedAt = cloneTime(t.AssignedAt)
	cp.AttentionStartedAt = cloneTime(t.AttentionStartedAt)
	cp.FinishedAt = cloneTime(t.FinishedAt)
	cp.ClosedAt = cloneTime(t.ClosedAt)
	cp.AttentionSeconds = cloneInt64(t.AttentionSeconds)
	cp.PendingSetAt = cloneTime(t.PendingSetAt)
	cp.DueAt = cloneTime(t.DueAt)
	return &cp
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
