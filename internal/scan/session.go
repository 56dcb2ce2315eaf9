package scan

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// Session is the in-memory state of one reader's scanning run.
// Duplicate suppression lives here only and is discarded when the session ends.
type Session struct {
	ID          string
	SessionDate string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSession starts an empty session for the given YYYY-MM-DD date.
func NewSession(sessionDate string) (*Session, error) {
	if _, err := domain.ParseSessionDate(sessionDate); err != nil {
		return nil, apperrors.NewValidationError("invalid session date", map[string]any{"sessionDate": sessionDate})
	}
	return &Session{
		ID:          uuid.NewString(),
		SessionDate: sessionDate,
		seen:        make(map[string]struct{}),
	}, nil
}

// Seen reports whether displayID was already accepted in this session.
func (s *Session) Seen(displayID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[displayID]
	return ok
}

// Len returns the number of accepted holders.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// markSeen inserts displayID and returns false if it was already present.
func (s *Session) markSeen(displayID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[displayID]; ok {
		return false
	}
	s.seen[displayID] = struct{}{}
	return true
}
