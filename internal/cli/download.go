package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/artifact"
	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
)

type DownloadOptions struct {
	GlobalOptions

	OutputDir string
}

func DefaultDownloadOptions() *DownloadOptions {
	return &DownloadOptions{
		GlobalOptions: DefaultGlobalOptions(),
		OutputDir:     ".",
	}
}

func NewCmdDownload() *cobra.Command {
	o := DefaultDownloadOptions()
	cmd := &cobra.Command{
		Use:   "download JOB_ID",
		Short: "Download the workbook of a completed job.",
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

func (o *DownloadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.OutputDir, "output-dir", "d", o.OutputDir, "Directory the workbook is saved to")
}

func (o *DownloadOptions) Run(ctx context.Context, out io.Writer, jobID string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	_, err = saveArtifact(ctx, c, o.Logger(), out, jobID, o.OutputDir)
	return err
}

// saveArtifact downloads the workbook of jobID into dir and prints a short
// summary of its content.
func saveArtifact(ctx context.Context, c *client.Client, logger *zap.Logger, out io.Writer, jobID, dir string) (*artifact.Summary, error) {
	dl, err := c.Download(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("downloading job %s: %w", jobID, err)
	}
	defer func() {
		_ = dl.Body.Close()
	}()

	path, err := artifact.Save(dir, dl.Filename, dl.Body)
	if err != nil {
		return nil, fmt.Errorf("saving job %s: %w", jobID, err)
	}
	logger.Info("artifact saved", zap.String("job_id", jobID), zap.String("path", path))

	summary, err := artifact.Inspect(path)
	if err != nil {
		logger.Warn("saved file is not a readable workbook", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(out, "Saved %s\n", path)
		return &artifact.Summary{Path: path}, nil
	}
	fmt.Fprintf(out, "Saved %s (sheet %q, %d rows)\n", summary.Path, summary.Sheet, summary.Rows)
	return summary, nil
}
