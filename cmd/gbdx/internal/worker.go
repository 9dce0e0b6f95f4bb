package internal

import (
	"fmt"
	"os"

	"github.com/dangazineu/gbdx/internal/config"
	"github.com/dangazineu/gbdx/internal/docker"
	"github.com/dangazineu/gbdx/internal/engine"
	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtimeFactory connects to the container runtime. The returned func releases it.
type runtimeFactory func(settings *config.Settings, fs afero.Fs, logger *zap.Logger) (engine.Runtime, func() error, error)

func dockerRuntime(settings *config.Settings, fs afero.Fs, logger *zap.Logger) (engine.Runtime, func() error, error) {
	rt, err := docker.NewRuntime(settings.DockerHost, settings.DockerConfig, fs, logger)
	if err != nil {
		return nil, nil, gerrors.ContainerRuntime(err, "failed to connect to docker")
	}
	return rt, rt.Close, nil
}

func newWorkerCmd(newRuntime runtimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run workflow tasks on this machine",
	}
	cmd.AddCommand(newWorkerRunCmd(newRuntime))
	return cmd
}

func newWorkerRunCmd(newRuntime runtimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the first task of a workflow in a local Docker container",
		Long: `Run fetches the descriptor of the workflow's first task from the task registry and runs
its Docker container locally. Scalar inputs are passed as gbdx-input-port-<name> environment
variables, directory inputs are mounted under /mnt/work/input and outputs are written to
<cwd>/<workflow>_outputs, which is deleted and recreated on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			output, _ := cmd.Flags().GetString("output")
			pull, _ := cmd.Flags().GetBool("pull")
			removeOutput, _ := cmd.Flags().GetBool("remove-output")

			if output != "" {
				return gerrors.New(gerrors.CodeNotImplemented, "--output is not supported; outputs are written to <cwd>/<workflow>_outputs")
			}

			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			workflow, err := config.Load(file)
			if err != nil {
				return err
			}

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}

			fs := afero.NewOsFs()
			runtime, closeRuntime, err := newRuntime(settings, fs, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeRuntime(); err != nil {
					logger.Debug("failed to close container runtime", zap.Error(err))
				}
			}()

			client := registry.NewClient(settings.Endpoint, settings.Token, registry.WithLogger(logger))
			runner := engine.NewRunner(client, runtime, fs, logger)

			result, err := runner.ExecuteWorkflow(ctx, workflow, engine.RunnerOptions{
				WorkDir:     workDir,
				Pull:        pull,
				WaitTimeout: settings.WaitTimeout,
			})
			if err != nil {
				return err
			}

			if err := showValue(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if removeOutput {
				if err := runner.RemoveOutput(result.OutputRoot); err != nil {
					return fmt.Errorf("failed to remove output directory: %w", err)
				}
				logger.Info("removed output directory", zap.String("path", result.OutputRoot))
			}
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "Workflow definition to run (YAML or JSON).")
	cmd.Flags().StringP("output", "o", "", "Output directory (not supported).")
	cmd.Flags().Bool("pull", false, "Pull the task image before running it.")
	cmd.Flags().Bool("remove-output", false, "Delete the output directory after printing the result.")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
