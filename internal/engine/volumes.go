package engine

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// VolumePlan is the container-side view of a set of resolved ports.
type VolumePlan struct {
	OutputRoot string
	Volumes    []string
	Binds      []string
	Env        map[string]string
}

// VolumePlanner turns resolved ports into mounts and prepares the host output directories.
//
// The output root is owned by a single run: Plan deletes and recreates it, so
// two runs must never share an output root.
type VolumePlanner struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewVolumePlanner(fs afero.Fs, logger *zap.Logger) *VolumePlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolumePlanner{fs: fs, logger: logger}
}

// Plan recreates outputRoot, creates a directory for every output port and
// returns the mounts, binds and environment for the container. Input
// directories are never touched.
func (vp *VolumePlanner) Plan(outputRoot string, ports []ResolvedPort) (*VolumePlan, error) {
	if err := vp.PrepareOutputRoot(outputRoot); err != nil {
		return nil, err
	}

	plan := &VolumePlan{
		OutputRoot: outputRoot,
		Env:        make(map[string]string),
	}

	for _, port := range ports {
		switch port.Kind {
		case PortDirectory:
			if port.Output {
				if err := vp.fs.MkdirAll(port.HostPath, 0755); err != nil {
					return nil, fmt.Errorf("failed to create output directory %s: %w", port.HostPath, err)
				}
			}
			plan.Volumes = append(plan.Volumes, port.ContainerPath)
			plan.Binds = append(plan.Binds, port.Bind())
		case PortEnvironment:
			plan.Env[port.Key] = port.Value
		default:
			return nil, fmt.Errorf("port %s has unknown kind %v", port.Name, port.Kind)
		}
	}

	return plan, nil
}

// PrepareOutputRoot deletes outputRoot if it exists and creates it empty.
func (vp *VolumePlanner) PrepareOutputRoot(outputRoot string) error {
	if outputRoot == "" {
		return fmt.Errorf("output root is required")
	}
	clean := filepath.Clean(outputRoot)
	if clean == string(filepath.Separator) || clean == "." {
		return fmt.Errorf("refusing to recreate output root %q", outputRoot)
	}

	exists, err := afero.Exists(vp.fs, clean)
	if err != nil {
		return fmt.Errorf("failed to stat output root: %w", err)
	}
	if exists {
		vp.logger.Debug("removing existing output root", zap.String("path", clean))
		if err := vp.fs.RemoveAll(clean); err != nil {
			return fmt.Errorf("failed to remove output root: %w", err)
		}
	}

	if err := vp.fs.MkdirAll(clean, 0755); err != nil {
		return fmt.Errorf("failed to create output root: %w", err)
	}
	return nil
}

// RemoveOutputRoot deletes the output root and everything below it.
func (vp *VolumePlanner) RemoveOutputRoot(outputRoot string) error {
	if err := vp.fs.RemoveAll(outputRoot); err != nil {
		return fmt.Errorf("failed to remove output root: %w", err)
	}
	return nil
}
