package internal

import (
	"fmt"
	"os"
	"slices"

	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/cobra"
)

var searchStates = []string{
	"all", "submitted", "scheduled", "started", "canceled", "cancelling", "failed",
	"succeeded", "timedout", "pending", "running", "complete",
}

func NewWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow commands",
	}

	cmd.AddCommand(
		newWorkflowListCmd(),
		newWorkflowGetCmd(),
		newWorkflowStatusCmd(),
		newWorkflowEventsCmd(),
		newWorkflowCancelCmd(),
		newWorkflowLaunchCmd(),
		newWorkflowSchemaCmd(),
		newWorkflowSearchCmd(),
	)
	return cmd
}

// apiCommand builds a command whose result is an API response body.
func apiCommand(use, short string, args cobra.PositionalArgs, call func(cmd *cobra.Command, client *registry.Client, args []string) ([]byte, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd, logging.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			body, err := call(cmd, client, args)
			if err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), body)
		},
	}
}

func newWorkflowListCmd() *cobra.Command {
	return apiCommand("ls", "List all workflows", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			return client.ListWorkflows(cmd.Context())
		})
}

func newWorkflowGetCmd() *cobra.Command {
	return apiCommand("get ID", "Show the details of a workflow", cobra.ExactArgs(1),
		func(cmd *cobra.Command, client *registry.Client, args []string) ([]byte, error) {
			return client.GetWorkflowRaw(cmd.Context(), args[0])
		})
}

func newWorkflowEventsCmd() *cobra.Command {
	return apiCommand("events ID", "Show the task events of a workflow", cobra.ExactArgs(1),
		func(cmd *cobra.Command, client *registry.Client, args []string) ([]byte, error) {
			return client.WorkflowEventsRaw(cmd.Context(), args[0])
		})
}

func newWorkflowCancelCmd() *cobra.Command {
	return apiCommand("cancel ID", "Cancel a workflow", cobra.ExactArgs(1),
		func(cmd *cobra.Command, client *registry.Client, args []string) ([]byte, error) {
			return client.CancelWorkflow(cmd.Context(), args[0])
		})
}

func newWorkflowSchemaCmd() *cobra.Command {
	return apiCommand("schema", "Show the workflow definition schema", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			return client.WorkflowSchema(cmd.Context())
		})
}

func newWorkflowLaunchCmd() *cobra.Command {
	cmd := apiCommand("launch", "Launch a workflow from a JSON file", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			file, _ := cmd.Flags().GetString("file")
			definition, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			return client.LaunchWorkflow(cmd.Context(), definition)
		})
	cmd.Flags().StringP("file", "f", "", "Workflow definition to launch (JSON file).")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newWorkflowStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status ID...",
		Short: "Show the status of one or more workflows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			runtime, _ := cmd.Flags().GetBool("runtime")

			ctx := cmd.Context()
			client, err := newAPIClient(cmd, logging.FromContext(ctx))
			if err != nil {
				return err
			}

			var statuses []registry.WorkflowStatus
			if len(args) > 1 {
				statuses, err = client.MultiStatus(ctx, args)
				if err != nil {
					return err
				}
				return showValue(cmd.OutOrStdout(), registry.BuildWorkflowStatus(statuses, nil, !verbose))
			}

			status, err := client.GetWorkflow(ctx, args[0])
			if err != nil {
				return err
			}
			if !verbose {
				return showValue(cmd.OutOrStdout(), status.State)
			}

			var events *registry.EventList
			if runtime {
				events, err = client.WorkflowEvents(ctx, args[0])
				if err != nil {
					return err
				}
			}
			statuses = []registry.WorkflowStatus{*status}
			return showValue(cmd.OutOrStdout(), registry.BuildWorkflowStatus(statuses, events, false))
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show tasks, submission time and runtime.")
	cmd.Flags().BoolP("runtime", "r", false, "With --verbose on a single workflow, include task runtimes.")
	return cmd
}

func newWorkflowSearchCmd() *cobra.Command {
	cmd := apiCommand("search", "Search workflows by lookback time, owner or state", cobra.NoArgs,
		func(cmd *cobra.Command, client *registry.Client, _ []string) ([]byte, error) {
			schema, _ := cmd.Flags().GetBool("schema")
			if schema {
				return client.SearchSchema(cmd.Context())
			}

			var req registry.SearchRequest
			if cmd.Flags().Changed("lookback-hours") {
				hours, _ := cmd.Flags().GetInt("lookback-hours")
				if hours < 0 || hours > 720 {
					return nil, fmt.Errorf("--lookback-hours must be between 0 and 720")
				}
				req.LookbackHours = &hours
			}
			if cmd.Flags().Changed("owner") {
				owner, _ := cmd.Flags().GetString("owner")
				req.Owner = &owner
			}
			if cmd.Flags().Changed("state") {
				state, _ := cmd.Flags().GetString("state")
				if !slices.Contains(searchStates, state) {
					return nil, fmt.Errorf("invalid state %q, must be one of %v", state, searchStates)
				}
				req.State = &state
			}
			return client.SearchWorkflows(cmd.Context(), req)
		})

	cmd.Flags().Bool("schema", false, "Show the search schema instead of searching.")
	cmd.Flags().IntP("lookback-hours", "l", 0, "Number of hours to look back, 720 max.")
	cmd.Flags().StringP("owner", "o", "", "Owner username. Requires super user access.")
	cmd.Flags().String("state", "", "State to filter by.")
	return cmd
}
