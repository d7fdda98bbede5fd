package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// Channel is a notification transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Audience is who a notice is addressed to.
type Audience string

const (
	AudienceRequester  Audience = "requester"
	AudienceTechnician Audience = "technician"
	AudienceAdmins     Audience = "admins"
)

// Notice is one outbound message derived from a domain event.
type Notice struct {
	Channel   Channel
	Audience  Audience
	EventType events.EventType
	TicketID  int64
	Subject   string
}

type route struct {
	channel  Channel
	audience Audience
}

var noticeRoutes = map[events.EventType][]route{
	events.EventTicketCreated:       {{ChannelEmail, AudienceRequester}, {ChannelWebhook, AudienceAdmins}},
	events.EventTicketAssigned:      {{ChannelEmail, AudienceTechnician}, {ChannelWebhook, AudienceAdmins}},
	events.EventTicketStatusChanged: {{ChannelWebhook, AudienceAdmins}},
	events.EventTicketEscalated:     {{ChannelEmail, AudienceTechnician}},
	events.EventTicketEvaluationDue: {{ChannelEmail, AudienceRequester}},
	events.EventTicketReopened:      {{ChannelEmail, AudienceTechnician}, {ChannelWebhook, AudienceAdmins}},
}

// NotificationService turns domain events into notices for requesters,
// technicians and administrators. Delivery is stubbed: notices are logged
// against the configured sender address and webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every routed event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		if _, ok := noticeRoutes[eventType]; ok {
			n.dispatcher.Subscribe(eventType, n.handle)
		}
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok && payload.TechnicianID == nil {
		n.logger.Warn("ticket left in unassigned pool",
			zap.Int64("ticket_id", event.TicketID),
			zap.String("reason", payload.Reason))
	}
	for _, notice := range n.Notices(event) {
		n.deliver(ctx, notice)
	}
	return nil
}

// Notices lists what event produces on the channels that are configured.
func (n *NotificationService) Notices(event events.Event) []Notice {
	subject := subjectFor(event)
	var out []Notice
	for _, r := range noticeRoutes[event.Type] {
		if !n.channelEnabled(r.channel) {
			continue
		}
		if r.audience == AudienceTechnician && !hasTechnician(event) {
			continue
		}
		out = append(out, Notice{
			Channel:   r.channel,
			Audience:  r.audience,
			EventType: event.Type,
			TicketID:  event.TicketID,
			Subject:   subject,
		})
	}
	return out
}

func (n *NotificationService) channelEnabled(channel Channel) bool {
	switch channel {
	case ChannelEmail:
		return strings.TrimSpace(n.cfg.EmailFrom) != ""
	case ChannelWebhook:
		return strings.TrimSpace(n.cfg.WebhookURL) != ""
	}
	return false
}

func (n *NotificationService) deliver(_ context.Context, notice Notice) {
	target := n.cfg.EmailFrom
	if notice.Channel == ChannelWebhook {
		target = n.cfg.WebhookURL
	}
	n.logger.Debug("notification stub",
		zap.String("channel", string(notice.Channel)),
		zap.String("target", target),
		zap.String("audience", string(notice.Audience)),
		zap.Int64("ticket_id", notice.TicketID),
		zap.String("event_type", string(notice.EventType)),
		zap.String("subject", notice.Subject))
}

// hasTechnician is false for pool assignments, which have nobody to email.
func hasTechnician(event events.Event) bool {
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
		return payload.TechnicianID != nil
	}
	return true
}

func subjectFor(event events.Event) string {
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return fmt.Sprintf("Ticket #%d opened: %s / %s", event.TicketID, p.Category, p.Subcategory)
	case events.TicketAssignedPayload:
		if p.TechnicianID == nil {
			return fmt.Sprintf("Ticket #%d waiting in the unassigned pool", event.TicketID)
		}
		return fmt.Sprintf("Ticket #%d assigned to %s", event.TicketID, p.TechnicianName)
	case events.TicketStatusChangedPayload:
		if p.AutoClosed {
			return fmt.Sprintf("Ticket #%d closed without evaluation", event.TicketID)
		}
		return fmt.Sprintf("Ticket #%d moved from %s to %s", event.TicketID, p.OldStatus, p.NewStatus)
	case events.TicketEscalatedPayload:
		return fmt.Sprintf("Ticket #%d escalated to you: %s", event.TicketID, p.Reason)
	case events.TicketEvaluationDuePayload:
		return fmt.Sprintf("Rate ticket #%d before %s", event.TicketID, p.AutoCloseAt.Format("2006-01-02 15:04"))
	case events.TicketReopenedPayload:
		return fmt.Sprintf("Ticket #%d reopened: %s", event.TicketID, p.Observation)
	}
	return fmt.Sprintf("Ticket #%d: %s", event.TicketID, event.Type)
}
