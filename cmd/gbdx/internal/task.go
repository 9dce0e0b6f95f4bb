package internal

import (
	"fmt"
	"os"

	"github.com/dangazineu/gbdx/internal/filter"
	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/cobra"
)

func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task commands",
	}

	cmd.AddCommand(
		newTaskListCmd(),
		newTaskGetCmd(),
		newTaskRegisterCmd(),
		newTaskDeleteCmd(),
		newTaskSchemaCmd(),
		newTaskLogCmd("stdout"),
		newTaskLogCmd("stderr"),
	)
	return cmd
}

func newTaskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the tasks available to the user",
		Long: `List the tasks available to the user. Every given filter must match. --filter takes a
CEL expression over the task name, for example: name.matches("^gdal") && size(name) < 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts filter.Options
			opts.StartsWith, _ = cmd.Flags().GetString("startswith")
			opts.Contains, _ = cmd.Flags().GetString("contains")
			opts.EndsWith, _ = cmd.Flags().GetString("endswith")
			opts.Expr, _ = cmd.Flags().GetString("filter")

			f, err := filter.New(opts)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cmd, logging.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			names, err := client.ListTasks(cmd.Context())
			if err != nil {
				return err
			}

			matched, err := f.Apply(names)
			if err != nil {
				return err
			}
			return showValue(cmd.OutOrStdout(), matched)
		},
	}

	cmd.Flags().StringP("startswith", "s", "", "Only list tasks that start with this substring.")
	cmd.Flags().StringP("contains", "c", "", "Only list tasks that contain this substring.")
	cmd.Flags().StringP("endswith", "e", "", "Only list tasks that end with this substring.")
	cmd.Flags().String("filter", "", "Only list tasks matching this CEL expression over name.")
	return cmd
}

func newTaskGetCmd() *cobra.Command {
	cmd := apiCommand("get", "Show the descriptor of a task", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			name, _ := cmd.Flags().GetString("name")
			return client.GetTaskRaw(cmd.Context(), name)
		})
	cmd.Flags().StringP("name", "n", "", "Name of the task.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTaskRegisterCmd() *cobra.Command {
	cmd := apiCommand("register", "Register a task from a JSON file", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			file, _ := cmd.Flags().GetString("file")
			definition, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			return client.RegisterTask(cmd.Context(), definition)
		})
	cmd.Flags().StringP("file", "f", "", "Task definition to register (JSON file).")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	cmd := apiCommand("delete", "Delete a task from the platform", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			name, _ := cmd.Flags().GetString("name")
			return client.DeleteTask(cmd.Context(), name)
		})
	cmd.Flags().StringP("name", "n", "", "Name of the task.")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTaskSchemaCmd() *cobra.Command {
	return apiCommand("schema", "Show the task definition schema", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			return client.TaskSchema(cmd.Context())
		})
}

func newTaskLogCmd(stream string) *cobra.Command {
	cmd := apiCommand(stream, fmt.Sprintf("Show the %s of a task run", stream), cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			workflowID, _ := cmd.Flags().GetString("workflow-id")
			taskID, _ := cmd.Flags().GetString("task-id")
			if stream == "stdout" {
				return client.TaskStdout(cmd.Context(), workflowID, taskID)
			}
			return client.TaskStderr(cmd.Context(), workflowID, taskID)
		})
	cmd.Flags().StringP("workflow-id", "w", "", "Id of the workflow.")
	cmd.Flags().StringP("task-id", "t", "", "Id of the task.")
	cmd.MarkFlagsRequiredTogether("workflow-id", "task-id")
	_ = cmd.MarkFlagRequired("workflow-id")
	return cmd
}
