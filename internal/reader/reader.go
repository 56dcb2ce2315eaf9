package reader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/scan"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

const (
	recoveryGrantCamera = "grant camera access and restart the reader"
	recoverySignIn      = "sign in with an officer or admin account"
)

// RoleLookup returns the signed-in account with its current role.
type RoleLookup interface {
	Me(ctx context.Context) (*domain.Account, error)
}

// Options wires a reader Session.
type Options struct {
	Identity      RoleLookup
	ReaderRoles   []domain.Role
	SessionDate   string
	Source        scan.FrameSource
	Decoder       scan.FrameDecoder
	Recorder      scan.Recorder
	Dispatcher    events.Dispatcher
	Clock         clockwork.Clock
	Cooldown      time.Duration
	RecordTimeout time.Duration
	Logger        *zap.Logger
}

// Session hosts one scanning run on a reader device.
type Session struct {
	opts     Options
	accepted atomic.Int64
	scan     atomic.Pointer[scan.Session]
}

// New validates options.
func New(opts Options) (*Session, error) {
	if opts.Identity == nil || opts.Source == nil || opts.Decoder == nil || opts.Recorder == nil {
		return nil, errors.New("reader: identity, source, decoder and recorder are required")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.NewInMemoryDispatcher()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.ReaderRoles) == 0 {
		opts.ReaderRoles = []domain.Role{domain.RoleOfficer, domain.RoleAdmin}
	}
	return &Session{opts: opts}, nil
}

// Accepted returns how many holders were recorded so far.
func (s *Session) Accepted() int64 {
	return s.accepted.Load()
}

// ScanSession returns the underlying scan session once Run has started it.
func (s *Session) ScanSession() *scan.Session {
	return s.scan.Load()
}

// Run confirms the reader's role, then scans until ctx is cancelled or the
// frame stream ends. Fatal conditions are published and returned.
func (s *Session) Run(ctx context.Context) error {
	reader, err := s.authorize(ctx)
	if err != nil {
		return s.fatal(ctx, "", err, recoverySignIn)
	}

	session, err := scan.NewSession(s.opts.SessionDate)
	if err != nil {
		return s.fatal(ctx, "", err, "restart with a YYYY-MM-DD session date")
	}
	s.scan.Store(session)
	logger := s.opts.Logger.With(zap.String("session_id", session.ID), zap.String("reader_id", reader.ID))

	validator, err := scan.NewValidator(scan.ValidatorOptions{
		Session:       session,
		Recorder:      s.opts.Recorder,
		Notifier:      scan.NotifierFunc(s.publishOutcome),
		Clock:         s.opts.Clock,
		Logger:        logger,
		RecordTimeout: s.opts.RecordTimeout,
	})
	if err != nil {
		return err
	}

	loop, err := scan.NewCaptureLoop(scan.CaptureOptions{
		Source:   s.opts.Source,
		Decoder:  s.opts.Decoder,
		Validate: validator.Validate,
		Clock:    s.opts.Clock,
		Cooldown: s.opts.Cooldown,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewEvent(events.EventSessionStarted, session.ID, s.opts.Clock.Now(), events.SessionStartedPayload{
		ReaderID:    reader.ID,
		SessionDate: session.SessionDate,
	}))
	logger.Info("scan session started", zap.String("session_date", session.SessionDate))

	runErr := loop.Run(ctx)

	endCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		return s.fatal(endCtx, session.ID, runErr, recoveryGrantCamera)
	}
	s.publish(endCtx, events.NewEvent(events.EventSessionEnded, session.ID, s.opts.Clock.Now(), events.SessionEndedPayload{
		Accepted: int(s.accepted.Load()),
		Dropped:  loop.Dropped(),
	}))
	logger.Info("scan session ended", zap.Int64("accepted", s.accepted.Load()), zap.Int64("dropped", loop.Dropped()))
	return nil
}

// authorize confirms the signed-in account may read. A failed lookup counts as unauthorized.
func (s *Session) authorize(ctx context.Context) (*domain.Account, error) {
	account, err := s.opts.Identity.Me(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorizedReader, err)
	}
	for _, role := range s.opts.ReaderRoles {
		if account.Role == role {
			return account, nil
		}
	}
	return nil, apperrors.Wrap(apperrors.ErrUnauthorizedReader, fmt.Errorf("role %s may not read", account.Role))
}

func (s *Session) publishOutcome(ctx context.Context, outcome scan.Outcome) {
	if outcome.Accepted() {
		s.accepted.Add(1)
	}
	payload := events.ScanOutcomePayload{
		Kind:      string(outcome.Kind),
		Message:   outcome.Kind.Message(),
		DisplayID: outcome.Record.DisplayID,
	}
	if outcome.Err != nil {
		payload.Error = outcome.Err.Error()
	}
	s.publish(ctx, events.NewEvent(events.EventScanOutcome, outcome.SessionID, outcome.At, payload))
}

func (s *Session) fatal(ctx context.Context, sessionID string, err error, recovery string) error {
	domainErr := apperrors.ToDomainError(err)
	s.opts.Logger.Error("scan session fatal", zap.String("code", domainErr.Code), zap.Error(err))
	s.publish(ctx, events.NewEvent(events.EventSessionFatal, sessionID, s.opts.Clock.Now(), events.SessionFatalPayload{
		Code:     domainErr.Code,
		Message:  domainErr.Message,
		Recovery: recovery,
	}))
	return err
}

func (s *Session) publish(ctx context.Context, event events.Event) {
	if err := s.opts.Dispatcher.Publish(ctx, event); err != nil {
		s.opts.Logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
