package domain

import "time"

// DefaultTokenTTL is the validity window of an attendance token.
const DefaultTokenTTL = 300 * time.Second

// TokenRecord is the identity-and-validity payload shown by a holder and captured by a reader.
// A record is never mutated after it is encoded; rotation builds a new one.
type TokenRecord struct {
	SubjectID     string
	DisplayID     string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RotationNonce int64
}

// NewTokenRecord builds a record seeded from now at millisecond precision.
func NewTokenRecord(subjectID, displayID string, now time.Time, ttl time.Duration) TokenRecord {
	nonce := now.UnixMilli()
	issuedAt := time.UnixMilli(nonce).UTC()
	return TokenRecord{
		SubjectID:     subjectID,
		DisplayID:     displayID,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.Add(ttl),
		RotationNonce: nonce,
	}
}

// ExpiredAt reports whether the record is no longer valid at now.
// The expiry instant itself counts as expired.
func (r TokenRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Remaining returns the validity left at now, never negative.
func (r TokenRecord) Remaining(now time.Time) time.Duration {
	if r.ExpiredAt(now) {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}

// Consistent reports whether ExpiresAt equals IssuedAt plus ttl.
func (r TokenRecord) Consistent(ttl time.Duration) bool {
	return r.ExpiresAt.Equal(r.IssuedAt.Add(ttl))
}
