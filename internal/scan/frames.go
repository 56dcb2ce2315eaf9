package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DirectoryFrameSource reads frames a capture device drops into a directory.
// Writers must create frames atomically (write then rename). Frames are
// removed once read; frames present before Open are ignored.
type DirectoryFrameSource struct {
	dir    string
	poll   time.Duration
	clock  clockwork.Clock
	logger *zap.Logger

	opened  bool
	stale   map[string]struct{}
	pending []string
}

// NewDirectoryFrameSource builds a source polling dir every poll interval.
func NewDirectoryFrameSource(dir string, poll time.Duration, clock clockwork.Clock, logger *zap.Logger) *DirectoryFrameSource {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryFrameSource{dir: dir, poll: poll, clock: clock, logger: logger}
}

// Open checks the device directory and snapshots stale frames.
func (s *DirectoryFrameSource) Open(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("open frame directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open frame directory: %s is not a directory", s.dir)
	}

	names, err := s.list()
	if err != nil {
		return err
	}
	s.stale = make(map[string]struct{}, len(names))
	for _, name := range names {
		s.stale[name] = struct{}{}
	}
	s.pending = nil
	s.opened = true
	return nil
}

// NextFrame returns the oldest unread frame, waiting for one to arrive.
func (s *DirectoryFrameSource) NextFrame(ctx context.Context) (image.Image, error) {
	if !s.opened {
		return nil, errors.New("frame source not open")
	}

	for {
		for len(s.pending) > 0 {
			name := s.pending[0]
			s.pending = s.pending[1:]

			img, err := s.read(name)
			if err != nil {
				s.logger.Debug("skip unreadable frame", zap.String("frame", name), zap.Error(err))
				s.stale[name] = struct{}{}
				continue
			}
			return img, nil
		}

		names, err := s.list()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if _, ok := s.stale[name]; !ok {
				s.pending = append(s.pending, name)
			}
		}
		if len(s.pending) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.poll):
		}
	}
}

// Close releases the device.
func (s *DirectoryFrameSource) Close() error {
	s.opened = false
	s.pending = nil
	return nil
}

func (s *DirectoryFrameSource) read(name string) (image.Image, error) {
	path := filepath.Join(s.dir, name)
	defer os.Remove(path) //nolint:errcheck

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func (s *DirectoryFrameSource) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
