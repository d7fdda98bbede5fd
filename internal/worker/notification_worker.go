package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a
// forwarder is configured, mirrors every event onto the Redis stream.
func StartNotificationWorker(notificationService *service.NotificationService, forwarder *events.StreamForwarder, dispatcher events.Dispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	forwarder.Register(dispatcher)
}
