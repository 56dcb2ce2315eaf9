package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
)

// NotificationService turns reader and issuer events into operator notifications.
// Scan outcomes are transient single lines; fatal session conditions print a
// banner with the recovery action.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu  sync.Mutex
	out io.Writer
}

// NewNotificationService creates the service. A nil out only logs.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, out io.Writer) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		out:        out,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSessionStarted, n.handleSessionStarted)
	n.dispatcher.Subscribe(events.EventScanOutcome, n.handleScanOutcome)
	n.dispatcher.Subscribe(events.EventSessionFatal, n.handleSessionFatal)
	n.dispatcher.Subscribe(events.EventSessionEnded, n.handleSessionEnded)
	n.dispatcher.Subscribe(events.EventTokenRotated, n.handleTokenRotated)
}

func (n *NotificationService) handleSessionStarted(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionStartedPayload)
	n.logger.Info("SessionStarted", zap.String("session_id", event.SessionID), zap.Any("payload", payload))
	n.printf("scanning for session %s\n", payload.SessionDate)
	return nil
}

func (n *NotificationService) handleScanOutcome(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ScanOutcomePayload)
	if !ok {
		return fmt.Errorf("scan outcome event %s: unexpected payload %T", event.ID, event.Payload)
	}
	n.metrics.RecordScanOutcome(payload.Kind)
	n.logger.Debug("ScanOutcome", zap.String("session_id", event.SessionID), zap.Any("payload", payload))

	if payload.DisplayID != "" {
		n.printf("[%s] %s: %s\n", payload.Kind, payload.DisplayID, payload.Message)
	} else {
		n.printf("[%s] %s\n", payload.Kind, payload.Message)
	}
	return nil
}

func (n *NotificationService) handleSessionFatal(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionFatalPayload)
	n.logger.Error("SessionFatal", zap.String("session_id", event.SessionID), zap.Any("payload", payload))
	n.printf("\n!! %s (%s)\n!! %s\n", payload.Message, payload.Code, payload.Recovery)
	return nil
}

func (n *NotificationService) handleSessionEnded(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionEndedPayload)
	n.logger.Info("SessionEnded", zap.String("session_id", event.SessionID), zap.Any("payload", payload))
	n.printf("session ended: %d recorded\n", payload.Accepted)
	return nil
}

func (n *NotificationService) handleTokenRotated(_ context.Context, event events.Event) error {
	n.logger.Debug("TokenRotated", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) printf(format string, args ...any) {
	if n.out == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, format, args...)
}
