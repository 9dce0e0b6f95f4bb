package config

import (
	"encoding/json"
	"fmt"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
)

// ContainerTypeDocker is the only container descriptor type the local engine can execute.
const ContainerTypeDocker = "DOCKER"

// PortTypeDirectory marks a port whose value is a directory bind-mounted into the container.
// Every other port type is a scalar passed through the environment.
const PortTypeDirectory = "directory"

// TaskDescriptor is the task registry's description of a task type.
type TaskDescriptor struct {
	Name                  string                `json:"name,omitempty"`
	Description           string                `json:"description,omitempty"`
	ContainerDescriptors  []ContainerDescriptor `json:"containerDescriptors"`
	InputPortDescriptors  []PortDescriptor      `json:"inputPortDescriptors"`
	OutputPortDescriptors []PortDescriptor      `json:"outputPortDescriptors,omitempty"`
}

type ContainerDescriptor struct {
	Type       string              `json:"type"`
	Command    string              `json:"command,omitempty"`
	Properties ContainerProperties `json:"properties"`
}

type ContainerProperties struct {
	Image string `json:"image"`
}

type PortDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsDirectory reports whether the port is bound as a directory mount.
func (p PortDescriptor) IsDirectory() bool {
	return p.Type == PortTypeDirectory
}

// ParseTaskDescriptor decodes and validates a task registry response body.
func ParseTaskDescriptor(data []byte) (*TaskDescriptor, error) {
	var descriptor TaskDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("could not unmarshal task descriptor: %w", err)
	}
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	return &descriptor, nil
}

// Validate rejects descriptors whose ports cannot be matched by name.
func (d *TaskDescriptor) Validate() error {
	for i, port := range d.InputPortDescriptors {
		if port.Name == "" {
			return fmt.Errorf("input port descriptor %d has no name", i)
		}
	}
	for i, port := range d.OutputPortDescriptors {
		if port.Name == "" {
			return fmt.Errorf("output port descriptor %d has no name", i)
		}
	}
	return nil
}

// DockerContainer returns the single DOCKER container descriptor. Any other
// container type, or a count other than one, is UnsupportedContainerType.
func (d *TaskDescriptor) DockerContainer() (ContainerDescriptor, error) {
	var docker []ContainerDescriptor
	for _, cd := range d.ContainerDescriptors {
		if cd.Type != ContainerTypeDocker {
			return ContainerDescriptor{}, gerrors.UnsupportedContainerType(cd.Type)
		}
		docker = append(docker, cd)
	}

	if len(docker) != 1 {
		return ContainerDescriptor{}, gerrors.UnsupportedContainerType(
			fmt.Sprintf("expected exactly one %s container descriptor, found %d", ContainerTypeDocker, len(docker)))
	}

	if docker[0].Properties.Image == "" {
		return ContainerDescriptor{}, gerrors.New(gerrors.CodeInvalidWorkflow, "container descriptor has no image")
	}

	return docker[0], nil
}
