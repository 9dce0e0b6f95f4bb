package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"gopkg.in/yaml.v3"
)

// Workflow is a workflow document: a name and the tasks it runs.
type Workflow struct {
	Name  string `yaml:"name" json:"name"`
	Tasks []Task `yaml:"tasks" json:"tasks"`
}

// Task is a single task instance inside a workflow document.
type Task struct {
	Name     string        `yaml:"name,omitempty" json:"name,omitempty"`
	TaskType string        `yaml:"taskType" json:"taskType"`
	Inputs   []PortBinding `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs  []PortBinding `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// PortBinding binds a task port by name to a literal value or to the output of another task.
type PortBinding struct {
	Name   string `yaml:"name" json:"name"`
	Value  string `yaml:"value,omitempty" json:"value,omitempty"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// Load reads and validates a workflow document. Both JSON and YAML are accepted.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a workflow document.
func Parse(data []byte) (*Workflow, error) {
	var workflow Workflow
	if err := unmarshal(data, &workflow); err != nil {
		return nil, gerrors.Wrap(err, gerrors.CodeInvalidWorkflow, "could not unmarshal workflow")
	}

	if err := validate(&workflow); err != nil {
		return nil, gerrors.Wrap(err, gerrors.CodeInvalidWorkflow, "invalid workflow")
	}

	return &workflow, nil
}

// unmarshal decodes JSON documents with encoding/json, since tab-indented JSON
// is not valid YAML, and everything else with yaml.v3.
func unmarshal(data []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("document is empty")
	}
	if trimmed[0] == '{' {
		return json.Unmarshal(trimmed, v)
	}
	return yaml.Unmarshal(trimmed, v)
}

func validate(workflow *Workflow) error {
	if err := ValidateName(workflow.Name); err != nil {
		return err
	}
	if len(workflow.Tasks) == 0 {
		return fmt.Errorf("workflow must declare at least one task")
	}

	for i, task := range workflow.Tasks {
		if err := validateTask(&task); err != nil {
			return fmt.Errorf("invalid task %d: %w", i, err)
		}
	}

	return nil
}

func validateTask(task *Task) error {
	if strings.TrimSpace(task.TaskType) == "" {
		return fmt.Errorf("missing required field: taskType")
	}
	if err := validateBindings("input", task.Inputs); err != nil {
		return err
	}
	return validateBindings("output", task.Outputs)
}

func validateBindings(kind string, bindings []PortBinding) error {
	seen := make(map[string]bool, len(bindings))
	for i, binding := range bindings {
		if binding.Name == "" {
			return fmt.Errorf("%s port %d has no name", kind, i)
		}
		if !isPathSegment(binding.Name) {
			return fmt.Errorf("%s port name '%s' must not contain path separators", kind, binding.Name)
		}
		if seen[binding.Name] {
			return fmt.Errorf("duplicate %s port '%s'", kind, binding.Name)
		}
		seen[binding.Name] = true
	}
	return nil
}

// ValidateName checks that a workflow name can be used as a single path
// element of its output root. An empty name is allowed.
func ValidateName(name string) error {
	if name != "" && !isPathSegment(name) {
		return gerrors.New(gerrors.CodeInvalidWorkflow, fmt.Sprintf("workflow name '%s' must not contain path separators", name))
	}
	return nil
}

func isPathSegment(name string) bool {
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

// OutputRoot returns the conventional output directory for a workflow run.
func (w *Workflow) OutputRoot(workDir string) string {
	name := w.Name
	if name == "" {
		name = "workflow"
	}
	return filepath.Join(workDir, name+"_outputs")
}
