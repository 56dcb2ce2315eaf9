package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/client"
	"github.com/spec-kit/attendance-service/internal/config"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/observability"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	APIURL   string
	Email    string
	Password string

	cfg *config.Config
}

// NewRootCommand creates the root command for attendctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "attendctl",
		Short: "attendctl - rotating attendance codes",
		Long:  "Show a rotating attendance code for the signed-in holder, or scan codes into the attendance ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.APIURL != "" {
				cfg.Reader.APIBaseURL = opts.APIURL
			}
			if opts.Verbose {
				cfg.Logger.Level = "debug"
			}
			if opts.Email == "" {
				opts.Email = os.Getenv("ATTENDCTL_EMAIL")
			}
			if opts.Password == "" {
				opts.Password = os.Getenv("ATTENDCTL_PASSWORD")
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "attendance service base URL (default READER_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "account email (default $ATTENDCTL_EMAIL)")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "account password (default $ATTENDCTL_PASSWORD)")

	cmd.AddCommand(NewIssueCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))

	return cmd
}

// signIn builds the service client and authenticates it.
func (o *RootOptions) signIn(ctx context.Context) (*client.Client, *domain.Account, error) {
	if o.Email == "" || o.Password == "" {
		return nil, nil, fmt.Errorf("credentials required: pass --email/--password or set ATTENDCTL_EMAIL/ATTENDCTL_PASSWORD")
	}
	c := client.New(o.cfg.Reader.APIBaseURL, o.cfg.Reader.RecordTimeout())
	account, err := c.Login(ctx, o.Email, o.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}
	return c, account, nil
}

func (o *RootOptions) logger() (*zap.Logger, error) {
	return observability.NewCLILogger(o.cfg.Logger)
}
