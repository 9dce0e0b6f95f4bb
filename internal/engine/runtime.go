// Package engine executes a single workflow task locally: it resolves the
// task's ports to bind mounts and environment variables, drives a container
// through create, start, wait and remove, and recovers the task's port and
// status artifacts from the exited container.
package engine

import (
	"context"
	"errors"
	"io"
)

// Container-side paths shared with task images. Task images read inputs and
// write outputs at these locations, so they are fixed.
const (
	ContainerInputRoot  = "/mnt/work/input"
	ContainerOutputRoot = "/mnt/work/output"

	PortsArtifactPath  = ContainerOutputRoot + "/ports.json"
	StatusArtifactPath = "/mnt/work/status.json"

	// InputPortEnvPrefix prefixes the environment variable carrying a scalar input port.
	InputPortEnvPrefix = "gbdx-input-port-"
)

// ErrArtifactNotFound reports that a requested path does not exist in the container.
var ErrArtifactNotFound = errors.New("artifact not found")

// ContainerSpec is everything needed to create the task container. It is
// built once per run and not modified after the container is created.
type ContainerSpec struct {
	Image   string
	Volumes []string // container-side mount points
	Binds   []string // hostPath:containerPath:mode
	Env     map[string]string
	Command []string // overrides the image command when non-empty
}

// Runtime is the container runtime the engine drives.
type Runtime interface {
	PullImage(ctx context.Context, image string) error
	CreateContainer(ctx context.Context, spec *ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	// WaitContainer blocks until the container stops and returns its exit code.
	WaitContainer(ctx context.Context, id string) (int64, error)
	// CopyFromContainer returns a tar archive of path. A missing path yields an
	// error wrapping ErrArtifactNotFound.
	CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, error)
	// ContainerLogs returns the container's stdout and stderr interleaved.
	ContainerLogs(ctx context.Context, id string) (string, error)
	RemoveContainer(ctx context.Context, id string) error
}
