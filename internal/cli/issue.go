package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/issuer"
	"github.com/spec-kit/attendance-service/internal/worker"
)

// IssueOptions holds flags for the issue command.
type IssueOptions struct {
	*RootOptions
	Output string
	NoPNG  bool
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IssueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Show a rotating attendance code for the signed-in holder",
		Long: `Sign in and display an attendance code that rotates every token lifetime.

Controls on stdin:
  r  refresh the code now
  q  quit

Example:
  attendctl issue --email student@example.com --password ...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "code image path (default ISSUER_OUTPUT_PATH)")
	cmd.Flags().BoolVar(&opts.NoPNG, "no-png", false, "do not write the code image")

	return cmd
}

func runIssue(cmd *cobra.Command, opts *IssueOptions) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, account, err := opts.signIn(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(worker.NotificationWorkerOptions{Dispatcher: dispatcher, Logger: logger})

	iss := issuer.New(issuer.Options{TTL: opts.cfg.Token.TTL(), Logger: logger})

	pngPath := opts.Output
	if pngPath == "" {
		pngPath = opts.cfg.Issuer.OutputPath
	}
	if opts.NoPNG {
		pngPath = ""
	}
	worker.StartRotationPublisher(ctx, iss, worker.RotationPublisherOptions{
		Dispatcher: dispatcher,
		Logger:     logger,
		PNGPath:    pngPath,
		PNGSize:    opts.cfg.Issuer.PNGSize,
	})
	iss.OnRotate(func(snap issuer.Snapshot) {
		printCode(out, snap, logger)
	})
	iss.OnTick(func(snap issuer.Snapshot) {
		fmt.Fprintf(out, "\rrefreshes in %3ds ", snap.SecondsRemaining)
	})

	if err := iss.Start(account.ID, account.DisplayID); err != nil {
		return err
	}
	defer iss.Stop()

	go handleControls(ctx, cmd.InOrStdin(), iss, cancel, logger)

	return iss.Run(ctx)
}

func printCode(out io.Writer, snap issuer.Snapshot, logger *zap.Logger) {
	art, err := issuer.RenderTerminal(snap.Transport)
	if err != nil {
		logger.Warn("render code", zap.Error(err))
		return
	}
	fmt.Fprintf(out, "\n%s\n%s  valid until %s\n", art, snap.Record.DisplayID, snap.Record.ExpiresAt.Local().Format("15:04:05"))
}

// handleControls reads operator commands until in is exhausted or ctx ends.
func handleControls(ctx context.Context, in io.Reader, iss *issuer.Issuer, cancel context.CancelFunc, logger *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r":
			if err := iss.RefreshNow(); err != nil {
				logger.Warn("refresh failed", zap.Error(err))
			}
		case "q":
			cancel()
			return
		}
	}
}
