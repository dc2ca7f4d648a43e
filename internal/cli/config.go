package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
)

func NewCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client config file.",
	}
	cmd.AddCommand(NewCmdConfigInit())
	return cmd
}

type ConfigInitOptions struct {
	GlobalOptions
}

func DefaultConfigInitOptions() *ConfigInitOptions {
	return &ConfigInitOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdConfigInit() *cobra.Command {
	o := DefaultConfigInitOptions()
	cmd := &cobra.Command{
		Use:   "init --server-url URL",
		Short: "Write the client config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("server-url") {
				return fmt.Errorf("must specify the service address with --server-url")
			}
			if err := o.GlobalOptions.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConfigInitOptions) Run(ctx context.Context, out io.Writer) error {
	if err := client.WriteConfig(o.ConfigFilePath, o.ServerURL); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", o.ConfigFilePath)
	return nil
}
