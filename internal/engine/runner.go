package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dangazineu/gbdx/internal/config"
	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ExecutionResult is the outcome of running one task container.
type ExecutionResult struct {
	WorkflowName string        `json:"workflow"`
	TaskType     string        `json:"task_type"`
	ContainerID  string        `json:"container_id"`
	Image        string        `json:"image"`
	OutputRoot   string        `json:"output_root"`
	Logs         string        `json:"logs"`
	ExitCode     int64         `json:"exit_code"`
	Ports        PortsOutcome  `json:"ports"`
	Status       StatusOutcome `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
}

// DescriptorSource looks up task descriptors by task type.
type DescriptorSource interface {
	GetTask(ctx context.Context, taskType string) (*config.TaskDescriptor, error)
}

// RunnerOptions configures a single workflow execution.
type RunnerOptions struct {
	// WorkDir anchors relative input paths and the default output root.
	WorkDir string
	// OutputRoot overrides <WorkDir>/<workflow>_outputs. It is deleted and
	// recreated, so it must not be shared with a concurrent run.
	OutputRoot  string
	Pull        bool
	WaitTimeout time.Duration
}

// Runner executes the first task of a workflow document in a local container.
type Runner struct {
	descriptors DescriptorSource
	runtime     Runtime
	fs          afero.Fs
	logger      *zap.Logger
}

func NewRunner(descriptors DescriptorSource, runtime Runtime, fs afero.Fs, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		descriptors: descriptors,
		runtime:     runtime,
		fs:          fs,
		logger:      logger,
	}
}

// ExecuteWorkflow fetches the descriptor for the workflow's first task and runs it.
// Later tasks are not executed.
func (r *Runner) ExecuteWorkflow(ctx context.Context, workflow *config.Workflow, opts RunnerOptions) (*ExecutionResult, error) {
	if len(workflow.Tasks) == 0 {
		return nil, gerrors.New(gerrors.CodeInvalidWorkflow, "workflow has no tasks")
	}
	if err := config.ValidateName(workflow.Name); err != nil {
		return nil, err
	}
	if len(workflow.Tasks) > 1 {
		r.logger.Warn("only the first task of the workflow is executed",
			zap.String("workflow", workflow.Name),
			zap.Int("tasks", len(workflow.Tasks)))
	}

	task := workflow.Tasks[0]
	descriptor, err := r.descriptors.GetTask(ctx, task.TaskType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task descriptor for %s: %w", task.TaskType, err)
	}

	if opts.OutputRoot == "" {
		opts.OutputRoot = workflow.OutputRoot(opts.WorkDir)
	}

	result, err := r.ExecuteTask(ctx, task, descriptor, opts)
	if err != nil {
		return nil, err
	}
	result.WorkflowName = workflow.Name
	return result, nil
}

// ExecuteTask runs task with an already fetched descriptor. Configuration
// errors are reported before the output root is touched or the runtime is called.
func (r *Runner) ExecuteTask(ctx context.Context, task config.Task, descriptor *config.TaskDescriptor, opts RunnerOptions) (*ExecutionResult, error) {
	if opts.OutputRoot == "" {
		return nil, fmt.Errorf("output root is required")
	}

	container, err := descriptor.DockerContainer()
	if err != nil {
		return nil, err
	}
	if !isValidImageName(container.Properties.Image) {
		return nil, gerrors.New(gerrors.CodeInvalidWorkflow, fmt.Sprintf("invalid container image name: %s", container.Properties.Image))
	}
	if _, err := parseCommand(container.Command); err != nil {
		return nil, err
	}

	logger := r.logger.With(zap.String("task", task.TaskType))

	ports, err := NewPortResolver(r.fs, opts.WorkDir, opts.OutputRoot, logger).Resolve(task, descriptor.InputPortDescriptors)
	if err != nil {
		return nil, err
	}

	plan, err := NewVolumePlanner(r.fs, logger).Plan(opts.OutputRoot, ports)
	if err != nil {
		return nil, err
	}

	spec, err := BuildContainerSpec(container, plan)
	if err != nil {
		return nil, err
	}

	manager := NewContainerManager(r.runtime, r.fs, logger).WithWaitTimeout(opts.WaitTimeout)
	result, err := manager.Run(ctx, spec, RunOptions{Pull: opts.Pull, OutputRoot: opts.OutputRoot})
	if err != nil {
		return nil, err
	}

	result.TaskType = task.TaskType
	return result, nil
}

// RemoveOutput deletes a run's output root.
func (r *Runner) RemoveOutput(outputRoot string) error {
	return NewVolumePlanner(r.fs, r.logger).RemoveOutputRoot(outputRoot)
}
