package domain

import (
	"fmt"
	"time"
)

// SessionDateLayout is the calendar format of a reader-selected session date.
const SessionDateLayout = "2006-01-02"

// ParseSessionDate validates a YYYY-MM-DD session date.
func ParseSessionDate(value string) (time.Time, error) {
	date, err := time.Parse(SessionDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("session date %q: %w", value, err)
	}
	return date, nil
}

// AttendanceSubmission is what a reader hands to the attendance recorder.
type AttendanceSubmission struct {
	Token       TokenRecord
	SessionDate string
}

// AttendanceRecord is a persisted attendance ledger row.
type AttendanceRecord struct {
	ID            string
	SubjectID     string
	DisplayID     string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RotationNonce int64
	SessionDate   string
	ReaderID      string
	RecordedAt    time.Time
}
