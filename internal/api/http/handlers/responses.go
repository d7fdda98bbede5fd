package handlers

import (
	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/assignment"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	t := view.Ticket
	resp := dto.TicketResponse{
		ID:                 t.ID,
		RequesterID:        t.RequesterID,
		ServiceID:          t.ServiceID,
		Category:           t.Category,
		Subcategory:        t.Subcategory,
		Description:        t.Description,
		Priority:           t.Priority,
		Status:             t.Status,
		TechnicianID:       t.TechnicianID,
		TechnicianName:     t.TechnicianName,
		CreatedAt:          t.CreatedAt,
		AssignedAt:         t.AssignedAt,
		AttentionStartedAt: t.AttentionStartedAt,
		FinishedAt:         t.FinishedAt,
		ClosedAt:           t.ClosedAt,
		AttentionSeconds:   t.AttentionSeconds,
		PendingReason:      t.PendingReason,
		PendingEstimate:    t.PendingEstimate,
		AutoClosed:         t.AutoClosed,
		ReopenCycle:        t.ReopenCycle,
		SLA:                t.SLA.String(),
		TargetSLA:          t.TargetSLA.String(),
		DueAt:              t.DueAt,
		RemainingSeconds:   view.RemainingSeconds,
		EnTiempo:           view.EnTiempo,
		WithinTarget:       view.WithinTarget,
		Reopened:           view.Reopened,
		AwaitingEvaluation: view.AwaitingEvaluation,
		Version:            t.Version,
		UpdatedAt:          t.UpdatedAt,
		CurrentEscalation:  escalationResponse(view.CurrentEscalation),
	}
	if r := view.OpenReopen; r != nil {
		resp.OpenReopen = &dto.ReopenResponse{
			Cycle:       r.Cycle,
			Observation: r.Observation,
			Cause:       r.Cause,
			RespondedAt: r.RespondedAt,
			CreatedAt:   r.CreatedAt,
		}
	}
	if e := view.Evaluation; e != nil {
		resp.Evaluation = &dto.EvaluationResponse{
			Cycle:     e.Cycle,
			Rating:    e.Rating,
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
		}
	}
	return resp
}

func escalationResponse(e *domain.Escalation) *dto.EscalationResponse {
	if e == nil {
		return nil
	}
	return &dto.EscalationResponse{
		ID:               e.ID,
		FromTechnicianID: e.FromTechnicianID,
		ToTechnicianID:   e.ToTechnicianID,
		ToTechnicianName: e.ToTechnicianName,
		Reason:           e.Reason,
		EscalatedBy:      e.EscalatedBy,
		CreatedAt:        e.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangedByRole: entry.ChangedByRole,
			ChangedByID:   entry.ChangedByID,
			ChangeType:    string(entry.ChangeType),
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}

func selectionResponse(s assignment.Selection) dto.SelectionResponse {
	resp := dto.SelectionResponse{
		Assigned:       s.Assigned,
		TechnicianName: s.TechnicianName,
		Area:           s.Area,
		Source:         string(s.Source),
		Reason:         s.Reason,
	}
	if s.Assigned {
		id := s.TechnicianID
		resp.TechnicianID = &id
	}
	return resp
}
