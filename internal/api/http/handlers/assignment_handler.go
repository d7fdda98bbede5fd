package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentHandler exposes technician suggestions.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: assignmentService}
}

// SuggestTechnician GET /services/:id/technician?priority=alta&exclude=12.
// The result is never applied to a ticket.
func (h *AssignmentHandler) SuggestTechnician(c *fiber.Ctx) error {
	principal, err := caller(c)
	if err != nil {
		return err
	}
	serviceID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var priority domain.TicketPriority
	if raw := c.Query("priority"); raw != "" {
		p, ok := domain.ParsePriority(raw)
		if !ok {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		priority = p
	}
	var exclude *int64
	if raw := c.Query("exclude"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("invalid exclude", map[string]any{"exclude": raw})
		}
		exclude = &id
	}
	selection, err := h.service.SelectTechnician(c.UserContext(), principal, serviceID, priority, exclude)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": selectionResponse(selection)})
}
