package lifecycle

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Action names one engine operation a role may perform.
type Action string

const (
	ActionCreate         Action = "create"
	ActionStartAttention Action = "start_attention"
	ActionSetPending     Action = "set_pending"
	ActionResume         Action = "resume"
	ActionEscalate       Action = "escalate"
	ActionFinish         Action = "finish"
	ActionEvaluate       Action = "evaluate"
	ActionReopen         Action = "reopen"
	ActionRespondReopen  Action = "respond_reopen"
	ActionForceClose     Action = "force_close"
	ActionAutoClose      Action = "auto_close"
	ActionListAll        Action = "list_all"
)

var technicianActions = []Action{
	ActionCreate,
	ActionStartAttention,
	ActionSetPending,
	ActionResume,
	ActionEscalate,
	ActionFinish,
	ActionReopen,
	ActionRespondReopen,
	ActionListAll,
}

// capabilities is the single source of role permissions.
var capabilities = map[domain.Role]map[Action]bool{
	domain.RoleEmployee:   actionSet(ActionCreate, ActionEvaluate, ActionReopen),
	domain.RoleTechnician: actionSet(technicianActions...),
	domain.RoleAdmin:      actionSet(append(technicianActions, ActionEvaluate, ActionForceClose)...),
	domain.RoleSystem:     actionSet(ActionAutoClose),
}

func actionSet(actions ...Action) map[Action]bool {
	set := make(map[Action]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}

// Can reports whether role may perform action.
func Can(role domain.Role, action Action) bool {
	return capabilities[role][action]
}

// Authorize returns a role-forbidden illegal transition when role lacks action.
func Authorize(role domain.Role, action Action) error {
	if Can(role, action) {
		return nil
	}
	return apperrors.NewRoleForbidden("action not permitted for role", map[string]any{
		"role":   role,
		"action": action,
	})
}

// ActionForStatus maps a requested target status to the action that reaches it.
// Abierto is never a target.
func ActionForStatus(target domain.TicketStatus) (Action, bool) {
	switch target {
	case domain.TicketStatusPending:
		return ActionSetPending, true
	case domain.TicketStatusInProgress:
		return ActionResume, true
	case domain.TicketStatusEscalated:
		return ActionEscalate, true
	case domain.TicketStatusFinished:
		return ActionFinish, true
	case domain.TicketStatusClosed:
		return ActionForceClose, true
	}
	return "", false
}
