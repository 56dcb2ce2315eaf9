package dto

import "time"

// AttendanceRequest is the recorder payload: the decoded token fields plus the session date.
type AttendanceRequest struct {
	SubjectID     string    `json:"subjectId"`
	DisplayID     string    `json:"displayId"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RotationNonce int64     `json:"rotationNonce"`
	SessionDate   string    `json:"sessionDate"`
}

// AttendanceResponse is a persisted ledger row.
type AttendanceResponse struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subjectId"`
	DisplayID     string    `json:"displayId"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RotationNonce int64     `json:"rotationNonce"`
	SessionDate   string    `json:"sessionDate"`
	ReaderID      string    `json:"readerId"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// ErrorBody mirrors the error envelope written by the error middleware.
type ErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}
