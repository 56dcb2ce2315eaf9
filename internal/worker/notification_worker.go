package worker

import (
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/service"
)

// NotificationWorkerOptions configures StartNotificationWorker.
type NotificationWorkerOptions struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	// Out receives operator lines; nil only logs.
	Out io.Writer
}

// StartNotificationWorker subscribes operator notifications to the dispatcher.
// It returns nil when there is nothing to subscribe to.
func StartNotificationWorker(opts NotificationWorkerOptions) *service.NotificationService {
	if opts.Dispatcher == nil {
		return nil
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}

	notifications := service.NewNotificationService(opts.Dispatcher, opts.Logger, opts.Metrics, opts.Out)
	notifications.RegisterHandlers()
	opts.Logger.Debug("notification worker started", zap.Bool("terminal", opts.Out != nil))
	return notifications
}
