package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/reader"
	"github.com/spec-kit/attendance-service/internal/scan"
	"github.com/spec-kit/attendance-service/internal/worker"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	SessionDate string
	FramesDir   string
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Scan attendance codes into the ledger",
		Long: `Sign in as a reader and scan attendance codes for one session date.

Frames are image files (.png, .jpg) dropped into the frames directory by a
camera bridge. Each is decoded once and removed.

Example:
  attendctl read --session-date 2025-06-02 --frames ./frames`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SessionDate, "session-date", time.Now().Format(domain.SessionDateLayout), "session date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.FramesDir, "frames", "", "frames directory (default READER_FRAMES_DIR)")

	return cmd
}

func runRead(cmd *cobra.Command, opts *ReadOptions) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, _, err := opts.signIn(ctx)
	if err != nil {
		return err
	}

	dir := opts.FramesDir
	if dir == "" {
		dir = opts.cfg.Reader.FramesDir
	}

	clock := clockwork.NewRealClock()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(worker.NotificationWorkerOptions{
		Dispatcher: dispatcher,
		Logger:     logger,
		Out:        cmd.OutOrStdout(),
	})

	session, err := reader.New(reader.Options{
		Identity:      api,
		ReaderRoles:   domain.ParseRoles(opts.cfg.Auth.ReaderRoles),
		SessionDate:   opts.SessionDate,
		Source:        scan.NewDirectoryFrameSource(dir, opts.cfg.Reader.FramePoll(), clock, logger),
		Decoder:       scan.NewQRDecoder(),
		Recorder:      api,
		Dispatcher:    dispatcher,
		Clock:         clock,
		Cooldown:      opts.cfg.Reader.Cooldown(),
		RecordTimeout: opts.cfg.Reader.RecordTimeout(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	return session.Run(ctx)
}
