package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/c001-ZHSH/star-plan-analysis/internal/preview"
)

type PreviewOptions struct {
	GlobalOptions

	Output string
}

func DefaultPreviewOptions() *PreviewOptions {
	return &PreviewOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdPreview() *cobra.Command {
	o := DefaultPreviewOptions()
	cmd := &cobra.Command{
		Use:   "preview JOB_ID",
		Short: "Display the sample rows of a completed job.",
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

func (o *PreviewOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *PreviewOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return validateOutput(o.Output)
}

// Run prints the preview. Structured output keeps every column the service
// returned; the table only shows the summarised ones.
func (o *PreviewOptions) Run(ctx context.Context, out io.Writer, jobID string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	rows, err := c.Preview(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reading preview of job %s: %w", jobID, err)
	}

	if done, err := printStructured(out, o.Output, rows); done {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No preview rows.")
		return nil
	}
	preview.Render(out, preview.Lines(rows))
	return nil
}
