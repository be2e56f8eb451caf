// Package worker starts the background consumers that hang off the event bus.
package worker

import (
	"github.com/spec-kit/access-gate/internal/service"
)

// StartNotificationWorker hooks the notification handlers onto the dispatcher.
// Handlers run synchronously on the publishing goroutine; there is no queue to
// drain on shutdown.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
