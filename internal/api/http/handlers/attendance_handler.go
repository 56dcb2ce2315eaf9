package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// AttendanceHandler exposes the attendance recorder endpoint.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record handles POST /api/v1/attendance.
func (h *AttendanceHandler) Record(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.attendance.Record(c.UserContext(), principal.Account.ID, domain.AttendanceSubmission{
		Token: domain.TokenRecord{
			SubjectID:     req.SubjectID,
			DisplayID:     req.DisplayID,
			IssuedAt:      req.IssuedAt,
			ExpiresAt:     req.ExpiresAt,
			RotationNonce: req.RotationNonce,
		},
		SessionDate: req.SessionDate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attendanceResponse(*record)})
}

// List handles GET /api/v1/attendance?sessionDate=YYYY-MM-DD.
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	records, err := h.attendance.List(c.UserContext(), c.Query("sessionDate"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	items := make([]dto.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, attendanceResponse(rec))
	}
	return c.JSON(fiber.Map{"data": items})
}

func attendanceResponse(rec domain.AttendanceRecord) dto.AttendanceResponse {
	return dto.AttendanceResponse{
		ID:            rec.ID,
		SubjectID:     rec.SubjectID,
		DisplayID:     rec.DisplayID,
		IssuedAt:      rec.IssuedAt,
		ExpiresAt:     rec.ExpiresAt,
		RotationNonce: rec.RotationNonce,
		SessionDate:   rec.SessionDate,
		ReaderID:      rec.ReaderID,
		RecordedAt:    rec.RecordedAt,
	}
}
