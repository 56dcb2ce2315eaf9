package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/codec"
	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// Recorder persists an accepted submission in the attendance ledger.
type Recorder interface {
	Record(ctx context.Context, submission domain.AttendanceSubmission) error
}

// ValidatorOptions wires a Validator.
type ValidatorOptions struct {
	Session       *Session
	Recorder      Recorder
	Notifier      Notifier
	Clock         clockwork.Clock
	Logger        *zap.Logger
	RecordTimeout time.Duration
}

// Validator judges decoded codes: decode, expiry, duplicate, record.
type Validator struct {
	session       *Session
	recorder      Recorder
	notifier      Notifier
	clock         clockwork.Clock
	logger        *zap.Logger
	recordTimeout time.Duration
}

// NewValidator builds a Validator bound to one session.
func NewValidator(opts ValidatorOptions) (*Validator, error) {
	if opts.Session == nil {
		return nil, errors.New("validator: session required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("validator: recorder required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Validator{
		session:       opts.Session,
		recorder:      opts.Recorder,
		notifier:      opts.Notifier,
		clock:         opts.Clock,
		logger:        opts.Logger,
		recordTimeout: opts.RecordTimeout,
	}, nil
}

// Session returns the session the validator guards.
func (v *Validator) Session() *Session {
	return v.session
}

// Validate runs one decoded string to exactly one terminal outcome and notifies it.
func (v *Validator) Validate(ctx context.Context, text string) Outcome {
	outcome := v.judge(ctx, text)
	outcome.SessionID = v.session.ID
	outcome.At = v.clock.Now()

	fields := []zap.Field{
		zap.String("session_id", v.session.ID),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("display_id", outcome.Record.DisplayID),
	}
	if outcome.Err != nil {
		fields = append(fields, zap.Error(outcome.Err))
	}
	if outcome.Kind == OutcomeRecordFailed {
		v.logger.Warn("scan outcome", fields...)
	} else {
		v.logger.Info("scan outcome", fields...)
	}

	if v.notifier != nil {
		v.notifier.Notify(ctx, outcome)
	}
	return outcome
}

func (v *Validator) judge(ctx context.Context, text string) Outcome {
	record, err := codec.Decode(text)
	if err != nil {
		return Outcome{Kind: OutcomeInvalidCode, Err: err}
	}

	now := v.clock.Now()
	if record.ExpiredAt(now) {
		return Outcome{
			Kind:   OutcomeExpired,
			Record: record,
			Err:    apperrors.Wrap(apperrors.ErrExpired, fmt.Errorf("expired at %s", record.ExpiresAt.Format(time.RFC3339))),
		}
	}

	if !v.session.markSeen(record.DisplayID) {
		return Outcome{Kind: OutcomeDuplicate, Record: record, Err: apperrors.ErrDuplicateInSession}
	}

	recordCtx := ctx
	if v.recordTimeout > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(ctx, v.recordTimeout)
		defer cancel()
	}

	// The display id stays marked even when recording fails; a retry counts as a duplicate.
	submission := domain.AttendanceSubmission{Token: record, SessionDate: v.session.SessionDate}
	if err := v.recorder.Record(recordCtx, submission); err != nil {
		if !errors.Is(err, apperrors.ErrRecorderUnavailable) {
			err = apperrors.Wrap(apperrors.ErrRecorderUnavailable, err)
		}
		return Outcome{Kind: OutcomeRecordFailed, Record: record, Err: err}
	}
	return Outcome{Kind: OutcomeRecorded, Record: record}
}
