// Package codec converts token records to and from the transport string embedded in an optical code.
//
// The structured form is a JSON object. The transport form is the standard base64 encoding of that
// object. Decode accepts either form; it checks shape and field types only, never authenticity.
//
// Timestamps travel at millisecond precision and decode in UTC, so a round trip preserves the
// instant (time.Time.Equal) but not the original location.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

// wireRecord is the structured-text shape. Pointer fields detect missing keys.
type wireRecord struct {
	SubjectID     *string    `json:"subjectId"`
	DisplayID     *string    `json:"displayId"`
	IssuedAt      *time.Time `json:"issuedAt"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	RotationNonce *int64     `json:"rotationNonce"`
}

// Marshal returns the structured-text form of a record without the text-safe layer.
func Marshal(record domain.TokenRecord) ([]byte, error) {
	issuedAt := record.IssuedAt.UTC()
	expiresAt := record.ExpiresAt.UTC()
	return json.Marshal(wireRecord{
		SubjectID:     &record.SubjectID,
		DisplayID:     &record.DisplayID,
		IssuedAt:      &issuedAt,
		ExpiresAt:     &expiresAt,
		RotationNonce: &record.RotationNonce,
	})
}

// Encode returns the transport string for a record.
func Encode(record domain.TokenRecord) (string, error) {
	if record.SubjectID == "" || record.DisplayID == "" {
		return "", errors.New("codec: record missing subject or display id")
	}
	raw, err := Marshal(record)
	if err != nil {
		return "", fmt.Errorf("codec: marshal record: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a transport string, falling back to raw structured text.
func Decode(text string) (domain.TokenRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.TokenRecord{}, apperrors.Wrap(apperrors.ErrMalformedPayload, errors.New("empty payload"))
	}

	if raw, err := base64.StdEncoding.DecodeString(text); err == nil {
		if record, err := unmarshal(raw); err == nil {
			return record, nil
		}
	}

	record, err := unmarshal([]byte(text))
	if err != nil {
		return domain.TokenRecord{}, apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	return record, nil
}

func unmarshal(raw []byte) (domain.TokenRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var wire wireRecord
	if err := dec.Decode(&wire); err != nil {
		return domain.TokenRecord{}, err
	}
	if dec.More() {
		return domain.TokenRecord{}, errors.New("trailing data after record")
	}

	missing := make([]string, 0, 5)
	if wire.SubjectID == nil {
		missing = append(missing, "subjectId")
	}
	if wire.DisplayID == nil {
		missing = append(missing, "displayId")
	}
	if wire.IssuedAt == nil {
		missing = append(missing, "issuedAt")
	}
	if wire.ExpiresAt == nil {
		missing = append(missing, "expiresAt")
	}
	if wire.RotationNonce == nil {
		missing = append(missing, "rotationNonce")
	}
	if len(missing) > 0 {
		return domain.TokenRecord{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	return domain.TokenRecord{
		SubjectID:     *wire.SubjectID,
		DisplayID:     *wire.DisplayID,
		IssuedAt:      wire.IssuedAt.UTC(),
		ExpiresAt:     wire.ExpiresAt.UTC(),
		RotationNonce: *wire.RotationNonce,
	}, nil
}
