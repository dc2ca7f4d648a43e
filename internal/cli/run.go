package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/internal/preview"
	"github.com/c001-ZHSH/star-plan-analysis/internal/session"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/metrics"
)

type RunOptions struct {
	GlobalOptions

	SourceURL      string
	Targets        []string
	Excludes       []string
	PollInterval   time.Duration
	OutputDir      string
	NoDownload     bool
	MetricsAddress string
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		GlobalOptions: DefaultGlobalOptions(),
		PollInterval:  session.DefaultPollInterval,
		OutputDir:     ".",
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:   "run --url URL",
		Short: "Fetch the universities of a page, analyse them and download the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.SourceURL, "url", o.SourceURL, "URL of the page listing the universities")
	fs.StringSliceVarP(&o.Targets, "target", "t", o.Targets, "University to analyse; repeatable. Defaults to every listed university")
	fs.StringSliceVarP(&o.Excludes, "exclude", "x", o.Excludes, "University to leave out; repeatable")
	fs.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "Delay between two job status checks")
	fs.StringVarP(&o.OutputDir, "output-dir", "d", o.OutputDir, "Directory the workbook is saved to")
	fs.BoolVar(&o.NoDownload, "no-download", o.NoDownload, "Do not download the workbook once the job completes")
	fs.StringVar(&o.MetricsAddress, "metrics-address", o.MetricsAddress, "Serve prometheus metrics on this address while running, e.g. :9090")
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if !cmd.Flags().Changed("poll-interval") {
		o.PollInterval = o.env.PollInterval
	}
	if !cmd.Flags().Changed("metrics-address") && o.env.MetricsAddress != "" {
		o.MetricsAddress = o.env.MetricsAddress
	}
	return nil
}

func (o *RunOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if strings.TrimSpace(o.SourceURL) == "" {
		return fmt.Errorf("must specify a source url with --url")
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

func (o *RunOptions) Run(ctx context.Context, out, errOut io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	logger := o.Logger()

	if o.MetricsAddress != "" {
		if err := o.serveMetrics(ctx, logger); err != nil {
			return err
		}
	}

	coordinator := session.NewCoordinator(c, newTerminalView(out, errOut),
		session.WithPollInterval(o.PollInterval),
		session.WithPollJitter(o.env.PollJitter),
		session.WithLogger(logger),
	)
	defer coordinator.Close()

	if err := coordinator.FetchCatalog(ctx, o.SourceURL); err != nil {
		return err
	}
	if err := o.applySelection(coordinator); err != nil {
		return err
	}
	if err := coordinator.Launch(ctx); err != nil {
		return err
	}

	outcome, err := coordinator.Wait(ctx)
	if err != nil {
		return err
	}
	if outcome.Status == client.StatusError {
		return fmt.Errorf("job %s failed: %s", outcome.JobID, outcome.Message)
	}

	fmt.Fprintf(out, "Job %s completed: %s\n", outcome.JobID, outcome.DownloadURL)
	preview.Render(out, preview.Lines(outcome.Preview))

	if o.NoDownload {
		return nil
	}
	_, err = saveArtifact(ctx, c, logger, out, outcome.JobID, o.OutputDir)
	return err
}

func (o *RunOptions) applySelection(coordinator *session.Coordinator) error {
	if len(o.Targets) == 0 && len(o.Excludes) == 0 {
		return nil
	}

	rows := coordinator.State().Targets
	catalog := make([]string, 0, len(rows))
	for _, row := range rows {
		catalog = append(catalog, row.Name)
	}

	chosen, err := chooseTargets(catalog, o.Targets, o.Excludes)
	if err != nil {
		return err
	}

	coordinator.SelectAll(false)
	for _, name := range chosen {
		if err := coordinator.Toggle(name, true); err != nil {
			return err
		}
	}
	return nil
}

func (o *RunOptions) serveMetrics(ctx context.Context, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", o.MetricsAddress)
	if err != nil {
		return fmt.Errorf("creating metrics listener: %w", err)
	}

	server := metrics.NewServer(o.MetricsAddress, listener)
	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return nil
}
