package scan

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/spec-kit/attendance-service/internal/codec"
	"github.com/spec-kit/attendance-service/internal/domain"
)

var t0 = time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

const sessionDate = "2025-06-02"

type fakeRecorder struct {
	mu    sync.Mutex
	calls []domain.AttendanceSubmission
	err   error
	block chan struct{}
}

func (r *fakeRecorder) Record(ctx context.Context, submission domain.AttendanceSubmission) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, submission)
	return r.err
}

func (r *fakeRecorder) Calls() []domain.AttendanceSubmission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AttendanceSubmission{}, r.calls...)
}

func mustEncode(r domain.TokenRecord) string {
	s, err := codec.Encode(r)
	if err != nil {
		panic(err)
	}
	return s
}

// textFrame is a frame whose "optical code" is its text field.
type textFrame struct {
	text string
}

func (textFrame) ColorModel() color.Model { return color.GrayModel }
func (textFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (textFrame) At(int, int) color.Color { return color.White }

type textDecoder struct{}

func (textDecoder) Decode(img image.Image) (string, error) {
	f, ok := img.(textFrame)
	if !ok || f.text == "" {
		return "", ErrNoCode
	}
	return f.text, nil
}

type chanSource struct {
	frames  chan image.Image
	openErr error

	mu     sync.Mutex
	closed bool
}

func newChanSource() *chanSource {
	return &chanSource{frames: make(chan image.Image)}
}

func (s *chanSource) Open(context.Context) error { return s.openErr }

func (s *chanSource) NextFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (s *chanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *chanSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
