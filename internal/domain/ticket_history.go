package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated     TicketChangeType = "CREATED"
	ChangeTypeStatus      TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee    TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeEscalation  TicketChangeType = "ESCALATION"
	ChangeTypeReopen      TicketChangeType = "REOPEN"
	ChangeTypeReopenCause TicketChangeType = "REOPEN_CAUSE"
	ChangeTypeEvaluation  TicketChangeType = "EVALUATION"
	ChangeTypeAutoClose   TicketChangeType = "AUTO_CLOSE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            int64
	TicketID      int64
	ChangedByRole Role
	ChangedByID   *int64
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
