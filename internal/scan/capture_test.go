package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/codec"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/issuer"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

func TestOffer_AtMostOneInFlight(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	release := make(chan struct{})
	var calls atomic.Int32

	loop, err := NewCaptureLoop(CaptureOptions{
		Source:  newChanSource(),
		Decoder: textDecoder{},
		Validate: func(ctx context.Context, text string) Outcome {
			calls.Add(1)
			<-release
			return Outcome{Kind: OutcomeRecorded}
		},
		Clock:    fc,
		Cooldown: DefaultCooldown,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.True(t, loop.Offer(ctx, "first"))
	assert.True(t, loop.Busy())
	assert.False(t, loop.Offer(ctx, "second"))
	assert.False(t, loop.Offer(ctx, "third"))
	assert.Equal(t, int64(2), loop.Dropped())

	close(release)
	fc.BlockUntil(1)
	assert.True(t, loop.Busy(), "guard stays set during cool-down")
	assert.False(t, loop.Offer(ctx, "lingering"))

	fc.Advance(DefaultCooldown)
	loop.Wait()
	assert.False(t, loop.Busy())
	assert.Equal(t, int32(1), calls.Load())

	require.True(t, loop.Offer(ctx, "next"))
	fc.BlockUntil(1)
	fc.Advance(DefaultCooldown)
	loop.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestOffer_PendingRecorderDiscardsLaterScans(t *testing.T) {
	rec := &fakeRecorder{block: make(chan struct{})}
	session, err := NewSession(sessionDate)
	require.NoError(t, err)
	v, err := NewValidator(ValidatorOptions{Session: session, Recorder: rec, Clock: clockwork.NewFakeClockAt(t0)})
	require.NoError(t, err)

	loop, err := NewCaptureLoop(CaptureOptions{
		Source:   newChanSource(),
		Decoder:  textDecoder{},
		Validate: v.Validate,
	})
	require.NoError(t, err)

	a := mustEncode(domain.NewTokenRecord("u1", "2025-00001", t0, domain.DefaultTokenTTL))
	b := mustEncode(domain.NewTokenRecord("u2", "2025-00002", t0, domain.DefaultTokenTTL))

	require.True(t, loop.Offer(context.Background(), a))
	assert.False(t, loop.Offer(context.Background(), b))
	assert.False(t, loop.Offer(context.Background(), b))

	close(rec.block)
	loop.Wait()

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2025-00001", calls[0].Token.DisplayID)
	assert.False(t, session.Seen("2025-00002"))
}

func TestRun_DeviceUnavailable(t *testing.T) {
	src := newChanSource()
	src.openErr = errors.New("permission denied")

	loop, err := NewCaptureLoop(CaptureOptions{
		Source:   src,
		Decoder:  textDecoder{},
		Validate: func(context.Context, string) Outcome { return Outcome{} },
	})
	require.NoError(t, err)

	err = loop.Run(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrDeviceUnavailable))
}

func TestRun_ValidatesDecodedFramesAndReleasesDevice(t *testing.T) {
	src := newChanSource()
	var mu sync.Mutex
	var seen []string

	loop, err := NewCaptureLoop(CaptureOptions{
		Source:  src,
		Decoder: textDecoder{},
		Validate: func(_ context.Context, text string) Outcome {
			mu.Lock()
			seen = append(seen, text)
			mu.Unlock()
			return Outcome{Kind: OutcomeRecorded}
		},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	src.frames <- textFrame{}
	src.frames <- textFrame{text: "a"}
	require.Eventually(t, func() bool { return !loop.Busy() && len(snapshot(&mu, &seen)) == 1 }, time.Second, 5*time.Millisecond)
	src.frames <- textFrame{text: "b"}
	require.Eventually(t, func() bool { return !loop.Busy() && len(snapshot(&mu, &seen)) == 2 }, time.Second, 5*time.Millisecond)
	close(src.frames)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return at end of stream")
	}
	assert.Equal(t, []string{"a", "b"}, snapshot(&mu, &seen))
	assert.True(t, src.Closed())
}

func TestRun_CancelReleasesDevice(t *testing.T) {
	src := newChanSource()
	loop, err := NewCaptureLoop(CaptureOptions{
		Source:   src,
		Decoder:  textDecoder{},
		Validate: func(context.Context, string) Outcome { return Outcome{} },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, src.Closed())
}

func TestDirectoryFrameSource_ReadsNewQRFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000-stale.png"), []byte("old"), 0o600))

	src := NewDirectoryFrameSource(dir, 5*time.Millisecond, nil, nil)
	require.NoError(t, src.Open(context.Background()))
	defer src.Close() //nolint:errcheck

	record := domain.NewTokenRecord("u1", "2025-00001", t0, domain.DefaultTokenTTL)
	transport, err := codec.Encode(record)
	require.NoError(t, err)
	png, err := issuer.RenderPNG(transport, 320)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "001-broken.png"), []byte("partial"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002-frame.png"), png, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := src.NextFrame(ctx)
	require.NoError(t, err)

	text, err := NewQRDecoder().Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, transport, text)

	_, statErr := os.Stat(filepath.Join(dir, "002-frame.png"))
	assert.True(t, os.IsNotExist(statErr), "consumed frames are removed")
	_, statErr = os.Stat(filepath.Join(dir, "000-stale.png"))
	assert.NoError(t, statErr, "stale frames are left alone")
}

func TestDirectoryFrameSource_MissingDevice(t *testing.T) {
	src := NewDirectoryFrameSource(filepath.Join(t.TempDir(), "absent"), 0, nil, nil)
	assert.Error(t, src.Open(context.Background()))
}

func TestQRDecoder_NoCode(t *testing.T) {
	_, err := NewQRDecoder().Decode(textFrame{})
	assert.True(t, errors.Is(err, ErrNoCode))
}

func snapshot(mu *sync.Mutex, s *[]string) []string {
	mu.Lock()
	defer mu.Unlock()
	return append([]string{}, *s...)
}
