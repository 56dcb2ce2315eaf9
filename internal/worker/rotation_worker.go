package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/issuer"
)

// RotationPublisherOptions configures StartRotationPublisher.
type RotationPublisherOptions struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// PNGPath, when set, receives a fresh code image on every rotation.
	PNGPath string
	PNGSize int
}

// StartRotationPublisher turns issuer rotations into TokenRotated events and
// keeps the optional PNG surface current. Register it before Issuer.Start.
func StartRotationPublisher(ctx context.Context, iss *issuer.Issuer, opts RotationPublisherOptions) {
	if iss == nil {
		return
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	iss.OnRotate(func(snap issuer.Snapshot) {
		if opts.PNGPath != "" {
			if err := writePNG(opts.PNGPath, snap.Transport, opts.PNGSize); err != nil {
				logger.Warn("write code image", zap.String("path", opts.PNGPath), zap.Error(err))
			}
		}
		if opts.Dispatcher == nil {
			return
		}
		event := events.NewEvent(events.EventTokenRotated, "", snap.Record.IssuedAt, events.TokenRotatedPayload{
			DisplayID:     snap.Record.DisplayID,
			RotationNonce: snap.Record.RotationNonce,
			ExpiresAt:     snap.Record.ExpiresAt,
		})
		if err := opts.Dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("publish rotation", zap.Error(err))
		}
	})
}

// writePNG replaces path atomically so viewers never see a partial image.
func writePNG(path, transport string, size int) error {
	png, err := issuer.RenderPNG(transport, size)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".code-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
