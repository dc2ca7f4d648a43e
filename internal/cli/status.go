package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/internal/session"
)

type StatusOptions struct {
	GlobalOptions

	Watch        bool
	PollInterval time.Duration
	Output       string
}

func DefaultStatusOptions() *StatusOptions {
	return &StatusOptions{
		GlobalOptions: DefaultGlobalOptions(),
		PollInterval:  session.DefaultPollInterval,
	}
}

func NewCmdStatus() *cobra.Command {
	o := DefaultStatusOptions()
	cmd := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Display the status of a job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *StatusOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVarP(&o.Watch, "watch", "w", o.Watch, "Keep polling until the job completes or fails")
	fs.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "Delay between two status checks with --watch")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *StatusOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if !cmd.Flags().Changed("poll-interval") {
		o.PollInterval = o.env.PollInterval
	}
	return nil
}

func (o *StatusOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return validateOutput(o.Output)
}

func (o *StatusOptions) Run(ctx context.Context, out io.Writer, jobID string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	var st *client.JobStatus
	if o.Watch {
		poller := session.NewPoller(c.JobStatus, o.PollInterval, o.env.PollJitter, o.Logger())
		var last string
		st, err = poller.Run(ctx, jobID, func(update *client.JobStatus) {
			if o.Output != "" || update.Status.Terminal() {
				return
			}
			line := fmt.Sprintf("%s %s (%d%%)", progressBar(update.Progress), update.Message, update.Progress)
			if line != last {
				last = line
				fmt.Fprintln(out, line)
			}
		})
	} else {
		st, err = c.JobStatus(ctx, jobID)
	}
	if err != nil {
		return fmt.Errorf("reading job %s: %w", jobID, err)
	}

	if done, err := printStructured(out, o.Output, st); done {
		return err
	}
	printStatusTable(out, jobID, st)
	return nil
}

func printStatusTable(w io.Writer, jobID string, st *client.JobStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"JOB", "STATUS", "PROGRESS", "MESSAGE", "FILENAME"})
	t.AppendRow(table.Row{jobID, st.Status, fmt.Sprintf("%d%%", st.Progress), st.Message, st.Filename})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
