package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishReachesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	errFirst := errors.New("first failed")

	d.Subscribe(EventScanOutcome, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.SessionID)
		return errFirst
	})
	d.Subscribe(EventScanOutcome, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.SessionID)
		return nil
	})
	d.Subscribe(EventSessionFatal, func(context.Context, Event) error {
		got = append(got, "fatal")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventScanOutcome, "s1", time.Now(), nil))
	assert.ErrorIs(t, err, errFirst)
	assert.EqualError(t, err, "scan_outcome: first failed")
	assert.Equal(t, []string{"first:s1", "second:s1"}, got)
}

func TestDispatcher_SubscribeAllRunsAfterTyped(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string

	d.SubscribeAll(func(_ context.Context, e Event) error {
		got = append(got, "all:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventSessionEnded, func(context.Context, Event) error {
		got = append(got, "ended")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSessionStarted, "s1", time.Now(), nil)))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSessionEnded, "s1", time.Now(), nil)))
	assert.Equal(t, []string{"all:scan_session_started", "ended", "all:scan_session_ended"}, got)
}

func TestDispatcher_StampsBareEvents(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen Event
	d.SubscribeAll(func(_ context.Context, e Event) error {
		seen = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenRotated}))
	assert.NotEmpty(t, seen.ID)
	assert.False(t, seen.Timestamp.IsZero())
}

func TestNewEvent_AssignsID(t *testing.T) {
	a := NewEvent(EventTokenRotated, "", time.Now(), nil)
	b := NewEvent(EventTokenRotated, "", time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
