package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// AttendanceRepository is the append-only attendance ledger.
type AttendanceRepository interface {
	Create(ctx context.Context, record *domain.AttendanceRecord) error
	ListBySessionDate(ctx context.Context, sessionDate string, limit, offset int) ([]domain.AttendanceRecord, error)
}

type attendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository constructs repository.
func NewAttendanceRepository(pool *pgxpool.Pool) AttendanceRepository {
	return &attendanceRepository{pool: pool}
}

// Create inserts a ledger row. (display_id, session_date) is not unique; readers judge duplicates.
func (r *attendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	const query = `
        INSERT INTO attendance_records
            (id, subject_id, display_id, issued_at, expires_at, rotation_nonce, session_date, reader_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING recorded_at`

	return r.pool.QueryRow(ctx, query,
		record.ID,
		record.SubjectID,
		record.DisplayID,
		record.IssuedAt,
		record.ExpiresAt,
		record.RotationNonce,
		record.SessionDate,
		record.ReaderID,
	).Scan(&record.RecordedAt)
}

func (r *attendanceRepository) ListBySessionDate(ctx context.Context, sessionDate string, limit, offset int) ([]domain.AttendanceRecord, error) {
	const query = `
        SELECT id, subject_id, display_id, issued_at, expires_at, rotation_nonce,
               session_date, reader_id, recorded_at
        FROM attendance_records
        WHERE session_date=$1
        ORDER BY recorded_at ASC
        LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, sessionDate, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AttendanceRecord
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SubjectID,
			&rec.DisplayID,
			&rec.IssuedAt,
			&rec.ExpiresAt,
			&rec.RotationNonce,
			&rec.SessionDate,
			&rec.ReaderID,
			&rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
