package worker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
)

func TestStartNotificationWorker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	var out bytes.Buffer

	svc := StartNotificationWorker(NotificationWorkerOptions{Dispatcher: dispatcher, Metrics: metrics, Out: &out})
	require.NotNil(t, svc)

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventScanOutcome, "s1", time.Now(), events.ScanOutcomePayload{
		Kind:      "recorded",
		Message:   "recorded",
		DisplayID: "S-1",
	}))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[recorded] S-1: recorded")
	assert.EqualValues(t, 1, metrics.ScanOutcomes()["recorded"])
}

func TestStartNotificationWorker_NoDispatcher(t *testing.T) {
	assert.Nil(t, StartNotificationWorker(NotificationWorkerOptions{}))
}
