package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ServiceID <= 0 {
		return apperrors.NewValidationError("service_id required", map[string]any{"missing": []string{"service_id"}})
	}
	view, err := h.service.CreateTicket(c.UserContext(), principal, service.CreateTicketInput{
		ServiceID:   req.ServiceID,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := caller(c)
	if err != nil {
		return err
	}
	input, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListTickets(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	view, err := h.service.ViewTicket(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	view, err := h.service.ChangeStatus(c.UserContext(), principal, id, service.StatusChangeInput{
		Status:          req.Status,
		Reason:          req.Reason,
		Estimate:        req.Estimate,
		TechnicianID:    req.TechnicianID,
		ExpectedVersion: expectedVersion(c, req.Version),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// Escalate POST /tickets/:id/escalations.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.Escalate(c.UserContext(), principal, id, service.EscalateInput{
		TechnicianID:    req.TechnicianID,
		Reason:          req.Reason,
		ExpectedVersion: expectedVersion(c, req.Version),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListEscalations GET /tickets/:id/escalations.
func (h *TicketsHandler) ListEscalations(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	chain, err := h.service.Escalations(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(chain))
	for i := range chain {
		items = append(items, *escalationResponse(&chain[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ForceClose POST /tickets/:id/close.
func (h *TicketsHandler) ForceClose(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	view, err := h.service.ForceClose(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req dto.ReopenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.Reopen(c.UserContext(), principal, id, req.Observation)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// RespondReopen POST /tickets/:id/reopen/response.
func (h *TicketsHandler) RespondReopen(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req dto.RespondReopenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.RespondReopen(c.UserContext(), principal, id, req.Cause)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// Evaluate POST /tickets/:id/evaluation.
func (h *TicketsHandler) Evaluate(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	var req dto.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.Evaluate(c.UserContext(), principal, id, service.EvaluateInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// RemainingTime GET /tickets/:id/remaining-time.
func (h *TicketsHandler) RemainingTime(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	remaining, err := h.service.ComputeRemainingTime(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RemainingTimeResponse{
		TicketID:         remaining.TicketID,
		DueAt:            remaining.DueAt,
		RemainingSeconds: remaining.RemainingSeconds,
		Overdue:          remaining.Overdue,
	}})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func caller(c *fiber.Ctx) (domain.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func principalAndID(c *fiber.Ctx) (domain.Principal, int64, error) {
	p, err := caller(c)
	if err != nil {
		return domain.Principal{}, 0, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return domain.Principal{}, 0, err
	}
	return p, id, nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

// expectedVersion prefers the body field and falls back to If-Match.
func expectedVersion(c *fiber.Ctx, body *int64) *int64 {
	if body != nil {
		return body
	}
	raw := strings.Trim(c.Get(fiber.HeaderIfMatch), `" `)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseTicketQuery(c *fiber.Ctx) (service.ListTicketsInput, error) {
	input := service.ListTicketsInput{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return input, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
			}
			input.Statuses = append(input.Statuses, status)
		}
	}
	if raw := c.Query("technician_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return input, apperrors.NewValidationError("invalid technician_id", nil)
		}
		input.TechnicianID = &id
	}
	if raw := c.Query("requester_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return input, apperrors.NewValidationError("invalid requester_id", nil)
		}
		input.RequesterID = &id
	}
	switch strings.ToLower(c.Query("reopened")) {
	case "true", "only":
		input.OnlyReopened = true
	case "any", "all":
		input.IncludeReopened = true
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize
	return input, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
