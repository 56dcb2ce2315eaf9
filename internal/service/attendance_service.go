package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// AttendanceService is the durable attendance recorder.
// It persists what readers submit; expiry and duplicate judgement happen on the reader.
type AttendanceService struct {
	records repository.AttendanceRepository
	logger  *zap.Logger
}

// NewAttendanceService creates the service.
func NewAttendanceService(records repository.AttendanceRepository, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{records: records, logger: logger}
}

// Record validates and persists a submission made by readerID.
func (s *AttendanceService) Record(ctx context.Context, readerID string, submission domain.AttendanceSubmission) (*domain.AttendanceRecord, error) {
	token := submission.Token
	details := map[string]any{}
	if strings.TrimSpace(token.SubjectID) == "" {
		details["subjectId"] = "required"
	}
	if strings.TrimSpace(token.DisplayID) == "" {
		details["displayId"] = "required"
	}
	if token.IssuedAt.IsZero() || token.ExpiresAt.IsZero() {
		details["issuedAt"] = "issuedAt and expiresAt required"
	}
	if _, err := domain.ParseSessionDate(submission.SessionDate); err != nil {
		details["sessionDate"] = "expected YYYY-MM-DD"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid attendance submission", details)
	}

	record := &domain.AttendanceRecord{
		ID:            uuid.NewString(),
		SubjectID:     token.SubjectID,
		DisplayID:     token.DisplayID,
		IssuedAt:      token.IssuedAt,
		ExpiresAt:     token.ExpiresAt,
		RotationNonce: token.RotationNonce,
		SessionDate:   submission.SessionDate,
		ReaderID:      readerID,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("attendance recorded",
		zap.String("record_id", record.ID),
		zap.String("display_id", record.DisplayID),
		zap.String("session_date", record.SessionDate),
		zap.String("reader_id", readerID))
	return record, nil
}

// List returns the ledger for a session date.
func (s *AttendanceService) List(ctx context.Context, sessionDate string, limit, offset int) ([]domain.AttendanceRecord, error) {
	if _, err := domain.ParseSessionDate(sessionDate); err != nil {
		return nil, apperrors.NewValidationError("invalid session date", map[string]any{"sessionDate": sessionDate})
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.records.ListBySessionDate(ctx, sessionDate, limit, offset)
}
