// Package docker implements the engine's container runtime on the Docker Engine API.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dangazineu/gbdx/internal/engine"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// apiClient is the part of the Docker client used by Runtime.
type apiClient interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// Runtime runs task containers on a Docker daemon.
type Runtime struct {
	client apiClient
	creds  *Credentials
	logger *zap.Logger
}

var _ engine.Runtime = (*Runtime)(nil)

// NewRuntime connects to the daemon at host, or the one named by the DOCKER_*
// environment when host is empty. Registry logins are read from dockerConfig.
func NewRuntime(host, dockerConfig string, fs afero.Fs, logger *zap.Logger) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	creds, err := LoadCredentials(fs, dockerConfig)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}

	return newRuntime(cli, creds, logger), nil
}

func newRuntime(cli apiClient, creds *Credentials, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if creds == nil {
		creds = &Credentials{}
	}
	return &Runtime{client: cli, creds: creds, logger: logger}
}

func (r *Runtime) PullImage(ctx context.Context, ref string) error {
	auth, err := r.creds.EncodedAuth(ref)
	if err != nil {
		return fmt.Errorf("failed to encode registry auth: %w", err)
	}

	r.logger.Debug("pulling image", zap.String("image", ref), zap.Bool("authenticated", auth != ""))
	resp, err := r.client.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("failed to pull docker image: %w", err)
	}
	defer resp.Close()

	// the pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, resp); err != nil {
		return fmt.Errorf("failed to pull docker image: %w", err)
	}
	return nil
}

func (r *Runtime) CreateContainer(ctx context.Context, spec *engine.ContainerSpec) (string, error) {
	volumes := make(map[string]struct{}, len(spec.Volumes))
	for _, v := range spec.Volumes {
		volumes[v] = struct{}{}
	}

	cfg := &container.Config{
		Image:   spec.Image,
		Env:     spec.EnvList(),
		Volumes: volumes,
	}
	if len(spec.Command) > 0 {
		cfg.Cmd = spec.Command
	}

	resp, err := r.client.ContainerCreate(ctx, cfg, &container.HostConfig{Binds: spec.Binds}, nil, nil, "")
	if err != nil {
		return "", err
	}
	for _, w := range resp.Warnings {
		r.logger.Warn("container create warning", zap.String("id", resp.ID), zap.String("warning", w))
	}
	return resp.ID, nil
}

func (r *Runtime) StartContainer(ctx context.Context, id string) error {
	return r.client.ContainerStart(ctx, id, container.StartOptions{})
}

// WaitContainer blocks until the container stops and returns its exit code.
func (r *Runtime) WaitContainer(ctx context.Context, id string) (int64, error) {
	waitCh, errCh := r.client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case err := <-errCh:
		return 0, err
	case res := <-waitCh:
		if res.Error != nil {
			return res.StatusCode, fmt.Errorf("waiting for container: %s", res.Error.Message)
		}
		return res.StatusCode, nil
	}
}

// CopyFromContainer returns path as a tar archive. A path that does not exist
// in the container is reported as engine.ErrArtifactNotFound.
func (r *Runtime) CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, error) {
	rc, _, err := r.client.CopyFromContainer(ctx, id, path)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", engine.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("copying %s from container: %w", path, err)
	}
	return rc, nil
}

// ContainerLogs returns stdout and stderr interleaved in arrival order.
func (r *Runtime) ContainerLogs(ctx context.Context, id string) (string, error) {
	rc, err := r.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, rc); err != nil {
		return out.String(), fmt.Errorf("demultiplexing logs: %w", err)
	}
	return out.String(), nil
}

func (r *Runtime) RemoveContainer(ctx context.Context, id string) error {
	return r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
}

// Close releases the client's connections.
func (r *Runtime) Close() error {
	return r.client.Close()
}
