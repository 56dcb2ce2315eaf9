package scan

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// DefaultCooldown is the pause after an outcome before the gate reopens.
const DefaultCooldown = 2 * time.Second

// FrameSource is a camera-like device producing frames. It is owned by one capture loop.
type FrameSource interface {
	Open(ctx context.Context) error
	// NextFrame blocks until a frame is available. io.EOF ends the stream.
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameDecoder extracts the text of an optical code from a frame.
type FrameDecoder interface {
	Decode(img image.Image) (string, error)
}

// ValidateFunc handles one decoded string.
type ValidateFunc func(ctx context.Context, text string) Outcome

// CaptureOptions wires a CaptureLoop.
type CaptureOptions struct {
	Source   FrameSource
	Decoder  FrameDecoder
	Validate ValidateFunc
	Clock    clockwork.Clock
	Cooldown time.Duration
	Logger   *zap.Logger
}

// CaptureLoop turns a frame stream into serialized validations.
// At most one validation is in flight; decodes arriving meanwhile are dropped.
type CaptureLoop struct {
	source   FrameSource
	decoder  FrameDecoder
	validate ValidateFunc
	clock    clockwork.Clock
	cooldown time.Duration
	logger   *zap.Logger

	busy     atomic.Bool
	inflight sync.WaitGroup
	dropped  atomic.Int64
}

// NewCaptureLoop validates options and builds the loop.
func NewCaptureLoop(opts CaptureOptions) (*CaptureLoop, error) {
	if opts.Source == nil || opts.Decoder == nil || opts.Validate == nil {
		return nil, errors.New("capture: source, decoder and validate are required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	return &CaptureLoop{
		source:   opts.Source,
		decoder:  opts.Decoder,
		validate: opts.Validate,
		clock:    opts.Clock,
		cooldown: opts.Cooldown,
		logger:   opts.Logger,
	}, nil
}

// Run acquires the device and pulls frames until ctx is cancelled or the stream ends.
// On return the device is released after any in-flight validation has finished.
func (l *CaptureLoop) Run(ctx context.Context) error {
	if err := l.source.Open(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrDeviceUnavailable, err)
	}
	defer func() {
		l.inflight.Wait()
		if err := l.source.Close(); err != nil {
			l.logger.Warn("release frame source", zap.Error(err))
		}
	}()

	for {
		frame, err := l.source.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return apperrors.Wrap(apperrors.ErrDeviceUnavailable, err)
		}

		text, err := l.decoder.Decode(frame)
		if err != nil {
			continue
		}
		l.Offer(ctx, text)
	}
}

// Offer submits a decoded string through the gate. It returns false when the
// string was discarded because a validation is still in flight.
func (l *CaptureLoop) Offer(ctx context.Context, text string) bool {
	if !l.busy.CompareAndSwap(false, true) {
		l.dropped.Add(1)
		l.logger.Debug("decode discarded; validation in flight")
		return false
	}

	// In-flight recording is allowed to finish after teardown.
	detached := context.WithoutCancel(ctx)
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		defer l.busy.Store(false)

		l.validate(detached, text)
		if l.cooldown > 0 {
			l.clock.Sleep(l.cooldown)
		}
	}()
	return true
}

// Busy reports whether a validation or its cool-down is in progress.
func (l *CaptureLoop) Busy() bool {
	return l.busy.Load()
}

// Dropped returns how many decodes were discarded by the gate.
func (l *CaptureLoop) Dropped() int64 {
	return l.dropped.Load()
}

// Wait blocks until no validation is in flight.
func (l *CaptureLoop) Wait() {
	l.inflight.Wait()
}
