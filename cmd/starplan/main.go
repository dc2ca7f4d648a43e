package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/cli"
)

func main() {
	command := NewStarPlanCommand()
	err := command.ExecuteContext(context.Background())
	_ = zap.L().Sync()
	if err != nil {
		os.Exit(1)
	}
}

func NewStarPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "starplan [flags] [options]",
		Short: "starplan drives the star plan analysis service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdUniversities())
	cmd.AddCommand(cli.NewCmdRun())
	cmd.AddCommand(cli.NewCmdStatus())
	cmd.AddCommand(cli.NewCmdPreview())
	cmd.AddCommand(cli.NewCmdDownload())
	cmd.AddCommand(cli.NewCmdConfig())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
