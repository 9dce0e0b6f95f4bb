package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	return newRootCmd(dockerRuntime)
}

func newRootCmd(newRuntime runtimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gbdx",
		Short: "gbdx is a command-line interface for the GBDX workflow platform.",
		Long: `gbdx manages tasks and workflows on the GBDX platform and runs workflow tasks locally.
The worker command executes a task's Docker container on this machine with the same port
conventions the platform uses, so tasks can be tested before they are registered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), verbose)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = logging.FromContext(cmd.Context()).Sync()
		},
	}

	cmd.PersistentFlags().String("config", "", "Settings file to use (default ~/.gbdx/config.yml).")
	cmd.PersistentFlags().String("endpoint", "", "Workflow API endpoint; overrides the settings file and GBDX_ENDPOINT.")
	cmd.PersistentFlags().Bool("verbose", false, "Enable debug logging.")
	cmd.AddCommand(newWorkerCmd(newRuntime))
	cmd.AddCommand(NewWorkflowCmd())
	cmd.AddCommand(NewTaskCmd())
	cmd.AddCommand(NewCatalogCmd())
	cmd.AddCommand(NewOrderingCmd())
	cmd.AddCommand(NewIdahoCmd())
	cmd.AddCommand(NewS3Cmd())
	cmd.AddCommand(NewS3TempCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
