package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

func TestNoticesFollowRoutesAndConfiguredChannels(t *testing.T) {
	techID := int64(7)
	created := events.Event{
		Type:     events.EventTicketCreated,
		TicketID: 12,
		Payload:  events.TicketCreatedPayload{Category: "Redes", Subcategory: "Internet"},
	}

	both := NewNotificationService(nil, nil, config.NotificationConfig{EmailFrom: "desk@example.com", WebhookURL: "http://hooks.local"})
	notices := both.Notices(created)
	require.Len(t, notices, 2)
	assert.Equal(t, ChannelEmail, notices[0].Channel)
	assert.Equal(t, AudienceRequester, notices[0].Audience)
	assert.Equal(t, "Ticket #12 opened: Redes / Internet", notices[0].Subject)
	assert.Equal(t, ChannelWebhook, notices[1].Channel)

	emailOnly := NewNotificationService(nil, nil, config.NotificationConfig{EmailFrom: "desk@example.com"})
	notices = emailOnly.Notices(events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: 12,
		Payload:  events.TicketAssignedPayload{TechnicianID: &techID, TechnicianName: "Ana", Source: "rule"},
	})
	require.Len(t, notices, 1)
	assert.Equal(t, AudienceTechnician, notices[0].Audience)
	assert.Equal(t, "Ticket #12 assigned to Ana", notices[0].Subject)
}

func TestPoolAssignmentSkipsTechnicianEmail(t *testing.T) {
	svc := NewNotificationService(nil, nil, config.NotificationConfig{EmailFrom: "desk@example.com", WebhookURL: "http://hooks.local"})

	notices := svc.Notices(events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: 4,
		Payload:  events.TicketAssignedPayload{Source: "none", Reason: "no eligible technician"},
	})

	require.Len(t, notices, 1)
	assert.Equal(t, ChannelWebhook, notices[0].Channel)
	assert.Equal(t, "Ticket #4 waiting in the unassigned pool", notices[0].Subject)
}

func TestNoticeSubjects(t *testing.T) {
	due := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   events.Event
		subject string
	}{
		{
			name: "auto closed",
			event: events.Event{Type: events.EventTicketStatusChanged, TicketID: 1, Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusFinished, NewStatus: domain.TicketStatusClosed, AutoClosed: true,
			}},
			subject: "Ticket #1 closed without evaluation",
		},
		{
			name: "status change",
			event: events.Event{Type: events.EventTicketStatusChanged, TicketID: 1, Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusInProgress,
			}},
			subject: "Ticket #1 moved from Abierto to En Progreso",
		},
		{
			name:    "evaluation due",
			event:   events.Event{Type: events.EventTicketEvaluationDue, TicketID: 2, Payload: events.TicketEvaluationDuePayload{AutoCloseAt: due}},
			subject: "Rate ticket #2 before 2024-03-05 14:30",
		},
		{
			name:    "unrouted",
			event:   events.Event{Type: events.EventTicketEvaluated, TicketID: 3},
			subject: "Ticket #3: ticket.evaluated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subject, subjectFor(tt.event))
		})
	}
}

func TestUnroutedEventsProduceNoNotices(t *testing.T) {
	svc := NewNotificationService(nil, nil, config.NotificationConfig{EmailFrom: "desk@example.com", WebhookURL: "http://hooks.local"})
	assert.Empty(t, svc.Notices(events.Event{Type: events.EventTicketEvaluated, TicketID: 9}))
}
