package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dangazineu/gbdx/internal/config"
	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultWaitTimeout bounds how long the engine waits for a task container to exit.
const DefaultWaitTimeout = time.Hour

var imageRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?([:\d]+)?/)?[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?(/[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?)*(:[\w.-]+)?(@sha256:[a-f0-9]{64})?$`)

// isValidImageName checks the [registry/]namespace/name[:tag][@digest] shape.
func isValidImageName(image string) bool {
	if image == "" || strings.Contains(image, "..") {
		return false
	}
	return imageRegex.MatchString(image)
}

// BuildContainerSpec combines the task's container descriptor with a volume plan.
func BuildContainerSpec(container config.ContainerDescriptor, plan *VolumePlan) (*ContainerSpec, error) {
	image := container.Properties.Image
	if !isValidImageName(image) {
		return nil, gerrors.New(gerrors.CodeInvalidWorkflow, fmt.Sprintf("invalid container image name: %s", image))
	}

	spec := &ContainerSpec{
		Image:   image,
		Volumes: append([]string(nil), plan.Volumes...),
		Binds:   append([]string(nil), plan.Binds...),
		Env:     make(map[string]string, len(plan.Env)),
	}
	for k, v := range plan.Env {
		spec.Env[k] = v
	}

	args, err := parseCommand(container.Command)
	if err != nil {
		return nil, err
	}
	spec.Command = args

	return spec, nil
}

// parseCommand splits a descriptor command with shell word rules. A blank
// command keeps the image's default.
func parseCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, gerrors.Wrap(err, gerrors.CodeInvalidWorkflow, "invalid container command")
	}
	return args, nil
}

// EnvList renders the environment as sorted KEY=VALUE pairs.
func (s *ContainerSpec) EnvList() []string {
	env := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// RunOptions controls a single container run.
type RunOptions struct {
	// Pull fetches the image before creating the container.
	Pull bool
	// OutputRoot receives the local copy of the ports artifact.
	OutputRoot string
}

// ContainerManager drives one task container through its lifecycle.
type ContainerManager struct {
	runtime     Runtime
	extractor   *OutputExtractor
	waitTimeout time.Duration
	logger      *zap.Logger
}

// NewContainerManager creates a manager. Artifacts are extracted through the
// same runtime and persisted to fs.
func NewContainerManager(runtime Runtime, fs afero.Fs, logger *zap.Logger) *ContainerManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContainerManager{
		runtime:     runtime,
		extractor:   NewOutputExtractor(runtime, fs, logger),
		waitTimeout: DefaultWaitTimeout,
		logger:      logger,
	}
}

// WithWaitTimeout sets the bound on waiting for the container to exit.
func (cm *ContainerManager) WithWaitTimeout(d time.Duration) *ContainerManager {
	if d > 0 {
		cm.waitTimeout = d
	}
	return cm
}

// Run pulls (optionally), creates, starts and waits for the container, then
// extracts its artifacts and logs. Once the container has been created it is
// removed exactly once, whatever happens afterwards. The exit code is
// recorded but not interpreted; task success is reported by the status artifact.
func (cm *ContainerManager) Run(ctx context.Context, spec *ContainerSpec, opts RunOptions) (*ExecutionResult, error) {
	startTime := time.Now()
	logger := cm.logger.With(zap.String("image", spec.Image))

	if opts.Pull {
		logger.Info("pulling image")
		if err := cm.runtime.PullImage(ctx, spec.Image); err != nil {
			return nil, gerrors.ContainerRuntime(err, fmt.Sprintf("failed to pull image %s", spec.Image))
		}
	}

	logger.Debug("creating container",
		zap.Strings("binds", spec.Binds),
		zap.Strings("env", spec.EnvList()),
		zap.Strings("command", spec.Command))
	id, err := cm.runtime.CreateContainer(ctx, spec)
	if err != nil {
		return nil, gerrors.ContainerRuntime(err, fmt.Sprintf("failed to create container with image %s", spec.Image))
	}
	logger = logger.With(zap.String("id", id))

	defer cm.removeContainer(context.WithoutCancel(ctx), id, logger)

	logger.Info("starting container")
	if err := cm.runtime.StartContainer(ctx, id); err != nil {
		return nil, gerrors.ContainerRuntime(err, fmt.Sprintf("failed to start container %s", id))
	}

	logger.Info("waiting for container")
	waitCtx, cancel := context.WithTimeout(ctx, cm.waitTimeout)
	exitCode, err := cm.runtime.WaitContainer(waitCtx, id)
	cancel()
	if err != nil {
		return nil, gerrors.ContainerRuntime(err, fmt.Sprintf("failed waiting for container %s", id))
	}
	logger.Debug("container exited", zap.Int64("exit_code", exitCode))

	ports, status := cm.extractor.Extract(ctx, id, opts.OutputRoot)

	logs, err := cm.runtime.ContainerLogs(ctx, id)
	if err != nil {
		logger.Warn("failed to read container logs", zap.Error(err))
	}

	return &ExecutionResult{
		ContainerID: id,
		Image:       spec.Image,
		OutputRoot:  opts.OutputRoot,
		Logs:        logs,
		ExitCode:    exitCode,
		Ports:       ports,
		Status:      status,
		StartTime:   startTime,
		EndTime:     time.Now(),
	}, nil
}

func (cm *ContainerManager) removeContainer(ctx context.Context, id string, logger *zap.Logger) {
	logger.Debug("removing container")
	if err := cm.runtime.RemoveContainer(ctx, id); err != nil {
		logger.Error("failed to remove container", zap.Error(err))
	}
}
