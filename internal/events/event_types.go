package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted EventType = "scan_session_started"
	EventSessionFatal   EventType = "scan_session_fatal"
	EventSessionEnded   EventType = "scan_session_ended"
	EventScanOutcome    EventType = "scan_outcome"
	EventTokenRotated   EventType = "token_rotated"
)

// Event represents a domain event emitted by the reader or issuer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, sessionID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: at,
		Payload:   payload,
	}
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	ReaderID    string `json:"reader_id"`
	SessionDate string `json:"session_date"`
}

// SessionFatalPayload payload. Fatal conditions stay on screen until the operator acts.
type SessionFatalPayload struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Recovery string `json:"recovery"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	Accepted int   `json:"accepted"`
	Dropped  int64 `json:"dropped"`
}

// ScanOutcomePayload payload. Outcome notifications are transient.
type ScanOutcomePayload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	DisplayID string `json:"display_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TokenRotatedPayload payload.
type TokenRotatedPayload struct {
	DisplayID     string    `json:"display_id"`
	RotationNonce int64     `json:"rotation_nonce"`
	ExpiresAt     time.Time `json:"expires_at"`
}
