package worker

import (
	"github.com/spec-kit/account-lifecycle/internal/service"
)

// StartNotificationWorker registers notification handlers for lifecycle
// events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
