// Package cli implements hrctl, a command-line client for the console API.
package cli

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/hrdesk/pkg/logger"
)

const (
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 90 * time.Second
	urlEnv         = "HRDESK_CONSOLE_URL"
)

var (
	// ErrRejected is returned when the console refused a write.
	ErrRejected = errors.New("rejected by the console")
	// ErrPartial is returned when only part of a bulk save went through.
	ErrPartial = errors.New("bulk save partially failed")
)

type rootOptions struct {
	url     string
	timeout time.Duration
	verbose bool
	jsonOut bool

	client *Client
	out    io.Writer
}

// NewRootCmd builds the hrctl command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	root := &cobra.Command{
		Use:   "hrctl",
		Short: "Manage HR catalogs and training records from the terminal",
		Long: `hrctl talks to the JSON API of a running console.

Catalog records are listed, created, updated and deleted with the same
validation the web forms apply. Session attendance can be reviewed and
saved in bulk, and course enrollment requests approved or rejected.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Nop()
			if opts.verbose {
				if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
					return err
				}
				if err := logger.SetLevelString("debug"); err != nil {
					return err
				}
				log = logger.Named("hrctl")
			}
			client, err := NewClient(opts.url, opts.timeout, log)
			if err != nil {
				return err
			}
			opts.client = client
			return nil
		},
	}
	root.SetOut(out)

	url := os.Getenv(urlEnv)
	if url == "" {
		url = defaultURL
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", url, "console base URL (env "+urlEnv+")")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request to stderr")
	flags.BoolVar(&opts.jsonOut, "json", false, "print raw JSON answers")

	root.AddCommand(
		newCatalogsCmd(opts),
		newListCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newAttendanceCmd(opts),
		newEnrollmentsCmd(opts),
	)
	return root
}
