package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/dangazineu/gbdx/internal/config"
	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// PortKind says how a resolved port reaches the container.
type PortKind int

const (
	PortDirectory PortKind = iota
	PortEnvironment
)

func (k PortKind) String() string {
	switch k {
	case PortDirectory:
		return "directory"
	case PortEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("PortKind(%d)", int(k))
	}
}

// Bind modes for directory ports.
const (
	BindReadOnly  = "ro"
	BindReadWrite = "rw"
)

// ResolvedPort is a port binding matched against its descriptor. Directory
// ports carry HostPath, ContainerPath and Mode; environment ports carry Key and Value.
type ResolvedPort struct {
	Name   string
	Kind   PortKind
	Output bool

	HostPath      string
	ContainerPath string
	Mode          string

	Key   string
	Value string
}

// Bind renders a directory port as a hostPath:containerPath:mode bind string.
func (p ResolvedPort) Bind() string {
	return fmt.Sprintf("%s:%s:%s", p.HostPath, p.ContainerPath, p.Mode)
}

// PortResolver maps a task's port bindings to bind mounts and environment variables.
type PortResolver struct {
	fs         afero.Fs
	workDir    string
	outputRoot string
	logger     *zap.Logger
}

// NewPortResolver creates a resolver. Relative input directories are looked up
// under workDir; output ports are placed under outputRoot.
func NewPortResolver(fs afero.Fs, workDir, outputRoot string, logger *zap.Logger) *PortResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortResolver{
		fs:         fs,
		workDir:    workDir,
		outputRoot: outputRoot,
		logger:     logger,
	}
}

// Resolve resolves every input binding against descriptors and every output
// binding to a directory under the output root. Inputs come first, in
// declaration order, followed by outputs.
func (r *PortResolver) Resolve(task config.Task, descriptors []config.PortDescriptor) ([]ResolvedPort, error) {
	resolved := make([]ResolvedPort, 0, len(task.Inputs)+len(task.Outputs))

	for _, binding := range task.Inputs {
		descriptor, found := lookupDescriptor(binding.Name, descriptors)
		if !found {
			return nil, gerrors.InvalidPort(binding.Name, "no matching input port descriptor")
		}

		port, err := r.resolveInput(binding, descriptor)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("resolved input port",
			zap.String("port", port.Name),
			zap.Stringer("kind", port.Kind),
			zap.String("descriptor", descriptor.Name))
		resolved = append(resolved, port)
	}

	for _, binding := range task.Outputs {
		resolved = append(resolved, ResolvedPort{
			Name:          binding.Name,
			Kind:          PortDirectory,
			Output:        true,
			HostPath:      filepath.Join(r.outputRoot, binding.Name),
			ContainerPath: path.Join(ContainerOutputRoot, binding.Name),
			Mode:          BindReadWrite,
		})
	}

	return resolved, nil
}

func (r *PortResolver) resolveInput(binding config.PortBinding, descriptor config.PortDescriptor) (ResolvedPort, error) {
	if !descriptor.IsDirectory() {
		return ResolvedPort{
			Name:  binding.Name,
			Kind:  PortEnvironment,
			Key:   InputPortEnvPrefix + binding.Name,
			Value: binding.Value,
		}, nil
	}

	hostPath, err := r.resolveDirectory(binding)
	if err != nil {
		return ResolvedPort{}, err
	}

	return ResolvedPort{
		Name:          binding.Name,
		Kind:          PortDirectory,
		HostPath:      hostPath,
		ContainerPath: path.Join(ContainerInputRoot, binding.Name),
		Mode:          BindReadOnly,
	}, nil
}

// resolveDirectory tries, in order: the value as an absolute directory, the
// value relative to the working directory, and <workDir>/inputs/<port>.
func (r *PortResolver) resolveDirectory(binding config.PortBinding) (string, error) {
	if value := binding.Value; value != "" {
		candidate := value
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(r.workDir, value)
		}
		if r.isDir(candidate) {
			return filepath.Clean(candidate), nil
		}
	}

	fallback := filepath.Join(r.workDir, "inputs", binding.Name)
	if r.isDir(fallback) {
		return fallback, nil
	}

	return "", gerrors.InvalidPort(binding.Name, "must be a valid directory")
}

func (r *PortResolver) isDir(p string) bool {
	ok, err := afero.IsDir(r.fs, p)
	return err == nil && ok
}

// lookupDescriptor matches a binding name against descriptors: an exact name
// match wins; otherwise the longest descriptor name that prefixes the binding
// name is used, which supports indexed ports such as "data_1".
func lookupDescriptor(name string, descriptors []config.PortDescriptor) (config.PortDescriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}

	var best config.PortDescriptor
	found := false
	for _, d := range descriptors {
		if d.Name == "" || !strings.HasPrefix(name, d.Name) {
			continue
		}
		if !found || len(d.Name) > len(best.Name) {
			best = d
			found = true
		}
	}
	return best, found
}
