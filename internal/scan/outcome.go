package scan

import (
	"context"
	"time"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// OutcomeKind distinguishes the terminal result of validating one decoded code.
type OutcomeKind string

const (
	OutcomeRecorded     OutcomeKind = "recorded"
	OutcomeInvalidCode  OutcomeKind = "invalid_code"
	OutcomeExpired      OutcomeKind = "expired"
	OutcomeDuplicate    OutcomeKind = "duplicate"
	OutcomeRecordFailed OutcomeKind = "record_failed"
)

// Message is the operator-facing text for the outcome.
func (k OutcomeKind) Message() string {
	switch k {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeInvalidCode:
		return "invalid code"
	case OutcomeExpired:
		return "expired"
	case OutcomeDuplicate:
		return "already scanned this session"
	case OutcomeRecordFailed:
		return "recording failed; holder stays marked for this session"
	default:
		return string(k)
	}
}

// Outcome is the single result produced for a decoded code.
// Record is the zero value when the code could not be decoded.
type Outcome struct {
	Kind      OutcomeKind
	Record    domain.TokenRecord
	SessionID string
	Err       error
	At        time.Time
}

// Accepted reports whether the code was recorded.
func (o Outcome) Accepted() bool {
	return o.Kind == OutcomeRecorded
}

// Notifier receives every outcome for display.
type Notifier interface {
	Notify(ctx context.Context, outcome Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, outcome Outcome)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}
