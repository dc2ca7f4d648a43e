package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
)

type UniversitiesOptions struct {
	GlobalOptions

	SourceURL string
	Output    string
}

func DefaultUniversitiesOptions() *UniversitiesOptions {
	return &UniversitiesOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdUniversities() *cobra.Command {
	o := DefaultUniversitiesOptions()
	cmd := &cobra.Command{
		Use:   "universities --url URL",
		Short: "List the universities published on a source page.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *UniversitiesOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.SourceURL, "url", o.SourceURL, "URL of the page listing the universities")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *UniversitiesOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if strings.TrimSpace(o.SourceURL) == "" {
		return fmt.Errorf("must specify a source url with --url")
	}
	return validateOutput(o.Output)
}

func (o *UniversitiesOptions) Run(ctx context.Context, out io.Writer) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	targets, err := c.FetchUniversities(ctx, strings.TrimSpace(o.SourceURL))
	if err != nil {
		return fmt.Errorf("listing universities: %w", err)
	}

	if done, err := printStructured(out, o.Output, targets); done {
		return err
	}
	printTargetsTable(out, targets)
	return nil
}

func printTargetsTable(w io.Writer, targets []client.Target) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "UNIVERSITY"})
	for i, target := range targets {
		t.AppendRow(table.Row{i + 1, target.Name})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
