package issuer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/codec"
	"github.com/spec-kit/attendance-service/internal/domain"
)

var t0 = time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

func newTestIssuer(t *testing.T) (*Issuer, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(t0)
	return New(Options{Clock: fc}), fc
}

func tickSeconds(t *testing.T, iss *Issuer, fc *clockwork.FakeClock, n int) {
	t.Helper()
	for k := 0; k < n; k++ {
		fc.Advance(time.Second)
		require.NoError(t, iss.Tick())
	}
}

func TestStart_IssuesImmediately(t *testing.T) {
	iss, _ := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))

	snap, ok := iss.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 300, snap.SecondsRemaining)
	assert.Equal(t, t0, snap.Record.IssuedAt)
	assert.Equal(t, t0.Add(300*time.Second), snap.Record.ExpiresAt)
	assert.Equal(t, t0.UnixMilli(), snap.Record.RotationNonce)

	decoded, err := codec.Decode(iss.CurrentTransportString())
	require.NoError(t, err)
	assert.Equal(t, snap.Record, decoded)
}

func TestStart_Validation(t *testing.T) {
	iss, _ := newTestIssuer(t)
	assert.Error(t, iss.Start("", "2025-00001"))
	assert.ErrorIs(t, iss.Tick(), ErrNotStarted)
	assert.ErrorIs(t, iss.RefreshNow(), ErrNotStarted)
	assert.Empty(t, iss.CurrentTransportString())

	require.NoError(t, iss.Start("u1", "2025-00001"))
	assert.ErrorIs(t, iss.Start("u1", "2025-00001"), ErrAlreadyStarted)
}

func TestTick_SilentRotationAtZero(t *testing.T) {
	iss, fc := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))
	first := iss.CurrentTransportString()

	var rotations []Snapshot
	iss.OnRotate(func(s Snapshot) { rotations = append(rotations, s) })

	tickSeconds(t, iss, fc, 299)
	assert.Equal(t, 1, iss.SecondsRemaining())
	assert.Equal(t, first, iss.CurrentTransportString())
	assert.Empty(t, rotations)

	tickSeconds(t, iss, fc, 1)
	assert.Equal(t, 300, iss.SecondsRemaining())
	assert.NotEqual(t, first, iss.CurrentTransportString())
	require.Len(t, rotations, 1)
	assert.Equal(t, t0.Add(300*time.Second), rotations[0].Record.IssuedAt)
	assert.Equal(t, t0.Add(600*time.Second), rotations[0].Record.ExpiresAt)
}

func TestRefreshNow_ResetsCountdown(t *testing.T) {
	iss, fc := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))
	old := iss.CurrentTransportString()

	tickSeconds(t, iss, fc, 180)
	require.Equal(t, 120, iss.SecondsRemaining())

	require.NoError(t, iss.RefreshNow())
	assert.Equal(t, 300, iss.SecondsRemaining())

	current := iss.CurrentTransportString()
	assert.NotEqual(t, old, current)

	superseded, err := codec.Decode(old)
	require.NoError(t, err)
	fresh, err := codec.Decode(current)
	require.NoError(t, err)
	assert.NotEqual(t, superseded.RotationNonce, fresh.RotationNonce)
	assert.Equal(t, t0.Add(180*time.Second), fresh.IssuedAt)
}

func TestEncodeFailure_KeepsPriorCode(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	fail := false
	iss := New(Options{Clock: fc, Encode: func(r domain.TokenRecord) (string, error) {
		if fail {
			return "", errors.New("boom")
		}
		return codec.Encode(r)
	}})
	require.NoError(t, iss.Start("u1", "2025-00001"))
	before := iss.CurrentTransportString()

	tickSeconds(t, iss, fc, 10)
	fail = true

	assert.Error(t, iss.RefreshNow())
	assert.Equal(t, before, iss.CurrentTransportString())
	assert.Equal(t, 290, iss.SecondsRemaining())

	for k := 0; k < 289; k++ {
		fc.Advance(time.Second)
		require.NoError(t, iss.Tick())
	}
	fc.Advance(time.Second)
	assert.Error(t, iss.Tick())
	assert.Equal(t, before, iss.CurrentTransportString())
	assert.Equal(t, 0, iss.SecondsRemaining())

	fail = false
	fc.Advance(time.Second)
	require.NoError(t, iss.Tick())
	assert.NotEqual(t, before, iss.CurrentTransportString())
	assert.Equal(t, 300, iss.SecondsRemaining())
}

func TestRun_DrivesTicksUntilCancelled(t *testing.T) {
	iss, fc := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))

	var mu sync.Mutex
	ticks := 0
	iss.OnTick(func(Snapshot) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- iss.Run(ctx) }()

	fc.BlockUntil(1)
	fc.Advance(time.Second)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 299, iss.SecondsRemaining())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_RequiresStart(t *testing.T) {
	iss, _ := newTestIssuer(t)
	assert.ErrorIs(t, iss.Run(context.Background()), ErrNotStarted)
}

func TestStop_DiscardsRecord(t *testing.T) {
	iss, _ := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))

	iss.Stop()
	_, ok := iss.Snapshot()
	assert.False(t, ok)
	assert.Empty(t, iss.CurrentTransportString())
	assert.NoError(t, iss.Start("u1", "2025-00001"))
}

func TestStop_EndsRun(t *testing.T) {
	iss, fc := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))

	var mu sync.Mutex
	ticks := 0
	iss.OnTick(func(Snapshot) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- iss.Run(context.Background()) }()
	fc.BlockUntil(1)

	iss.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	for k := 0; k < 3; k++ {
		fc.Advance(time.Second)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, ticks)
}

func TestStop_Restart(t *testing.T) {
	iss, fc := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))
	iss.Stop()
	iss.Stop()

	require.NoError(t, iss.Start("u1", "2025-00001"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- iss.Run(ctx) }()

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return iss.SecondsRemaining() == 299 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRender(t *testing.T) {
	iss, _ := newTestIssuer(t)
	require.NoError(t, iss.Start("u1", "2025-00001"))

	png, err := RenderPNG(iss.CurrentTransportString(), 256)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	text, err := RenderTerminal(iss.CurrentTransportString())
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	_, err = RenderPNG("", 256)
	assert.ErrorIs(t, err, ErrNotStarted)
}
