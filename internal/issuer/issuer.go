// Package issuer holds the holder-side rotating attendance token.
//
// An Issuer keeps exactly one live TokenRecord. A one-second tick counts the remaining validity
// down and silently replaces the record when it reaches zero; RefreshNow replaces it on demand.
package issuer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/codec"
	"github.com/spec-kit/attendance-service/internal/domain"
)

var (
	ErrNotStarted     = errors.New("issuer: not started")
	ErrAlreadyStarted = errors.New("issuer: already started")
)

// EncodeFunc turns a record into its transport string.
type EncodeFunc func(domain.TokenRecord) (string, error)

// Snapshot is an immutable view of the issuer state handed to presentation.
type Snapshot struct {
	Record           domain.TokenRecord
	Transport        string
	SecondsRemaining int
}

// Options configures an Issuer. Zero values fall back to defaults.
type Options struct {
	TTL    time.Duration
	Clock  clockwork.Clock
	Encode EncodeFunc
	Logger *zap.Logger
}

// Issuer owns the rotation clock and the current record.
type Issuer struct {
	mu         sync.RWMutex
	ttl        time.Duration
	ttlSeconds int
	clock      clockwork.Clock
	encode     EncodeFunc
	logger     *zap.Logger

	started   bool
	stopped   chan struct{}
	subjectID string
	displayID string
	current   domain.TokenRecord
	transport string
	remaining int

	onRotate []func(Snapshot)
	onTick   []func(Snapshot)
}

// New builds an idle issuer.
func New(opts Options) *Issuer {
	if opts.TTL <= 0 {
		opts.TTL = domain.DefaultTokenTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Encode == nil {
		opts.Encode = codec.Encode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Issuer{
		ttl:        opts.TTL,
		ttlSeconds: int(opts.TTL / time.Second),
		clock:      opts.Clock,
		encode:     opts.Encode,
		logger:     opts.Logger,
	}
}

// OnRotate registers a callback invoked after every successful rotation, including the first record.
func (i *Issuer) OnRotate(fn func(Snapshot)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onRotate = append(i.onRotate, fn)
}

// OnTick registers a callback invoked after every countdown tick.
func (i *Issuer) OnTick(fn func(Snapshot)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onTick = append(i.onTick, fn)
}

// Start begins issuing for the holder and constructs the first record immediately.
func (i *Issuer) Start(subjectID, displayID string) error {
	if subjectID == "" || displayID == "" {
		return errors.New("issuer: subject and display id required")
	}

	i.mu.Lock()
	if i.started {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}
	i.subjectID = subjectID
	i.displayID = displayID
	snap, err := i.rotateLocked("start")
	if err != nil {
		i.mu.Unlock()
		return err
	}
	i.started = true
	i.stopped = make(chan struct{})
	listeners := append([]func(Snapshot){}, i.onRotate...)
	i.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// Tick advances the countdown by one second and rotates when it reaches zero.
// A failed rotation keeps the prior record and is retried on the next tick.
func (i *Issuer) Tick() error {
	i.mu.Lock()
	if !i.started {
		i.mu.Unlock()
		return ErrNotStarted
	}
	if i.remaining > 0 {
		i.remaining--
	}

	var (
		rotated   []func(Snapshot)
		rotateErr error
	)
	if i.remaining == 0 {
		if _, rotateErr = i.rotateLocked("expiry"); rotateErr == nil {
			rotated = append(rotated, i.onRotate...)
		}
	}
	snap := i.snapshotLocked()
	ticked := append([]func(Snapshot){}, i.onTick...)
	i.mu.Unlock()

	notify(rotated, snap)
	notify(ticked, snap)
	return rotateErr
}

// RefreshNow rotates out of band regardless of the remaining time.
func (i *Issuer) RefreshNow() error {
	i.mu.Lock()
	if !i.started {
		i.mu.Unlock()
		return ErrNotStarted
	}
	snap, err := i.rotateLocked("manual")
	if err != nil {
		i.mu.Unlock()
		return err
	}
	listeners := append([]func(Snapshot){}, i.onRotate...)
	i.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// CurrentTransportString returns the encoded current record, or "" before Start.
func (i *Issuer) CurrentTransportString() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.transport
}

// SecondsRemaining returns the countdown value in [0, ttl].
func (i *Issuer) SecondsRemaining() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.remaining
}

// Snapshot returns the current state. ok is false before Start.
func (i *Issuer) Snapshot() (Snapshot, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if !i.started {
		return Snapshot{}, false
	}
	return i.snapshotLocked(), true
}

// Run arms the one-second ticker and drives Tick until ctx is done or Stop is called.
func (i *Issuer) Run(ctx context.Context) error {
	i.mu.RLock()
	started, stopped := i.started, i.stopped
	i.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	ticker := i.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			return nil
		case <-ticker.Chan():
			if err := i.Tick(); err != nil {
				i.logger.Warn("token rotation failed; keeping previous code", zap.Error(err))
			}
		}
	}
}

// Stop tears the issuer down, ends Run and discards the live record.
func (i *Issuer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		close(i.stopped)
	}
	i.started = false
	i.current = domain.TokenRecord{}
	i.transport = ""
	i.remaining = 0
}

func (i *Issuer) rotateLocked(reason string) (Snapshot, error) {
	record := domain.NewTokenRecord(i.subjectID, i.displayID, i.clock.Now(), i.ttl)
	transport, err := i.encode(record)
	if err != nil {
		i.logger.Error("encode token record", zap.String("reason", reason), zap.Error(err))
		return Snapshot{}, err
	}

	i.current = record
	i.transport = transport
	i.remaining = i.ttlSeconds
	i.logger.Debug("token rotated",
		zap.String("reason", reason),
		zap.String("display_id", record.DisplayID),
		zap.Int64("rotation_nonce", record.RotationNonce),
		zap.Time("expires_at", record.ExpiresAt))
	return i.snapshotLocked(), nil
}

func (i *Issuer) snapshotLocked() Snapshot {
	return Snapshot{Record: i.current, Transport: i.transport, SecondsRemaining: i.remaining}
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
