package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name        string
		content     string
		expectError bool
		errContains string
	}{
		{
			name:    "valid json",
			content: `{"name":"demo","tasks":[{"taskType":"echoTask","inputs":[{"name":"msg","value":"hello"}],"outputs":[{"name":"result"}]}]}`,
		},
		{
			name:    "valid json with tab indentation",
			content: "{\n\t\"name\": \"demo\",\n\t\"tasks\": [{\"taskType\": \"echoTask\"}]\n}",
		},
		{
			name: "valid yaml",
			content: `
name: demo
tasks:
  - taskType: echoTask
    inputs:
      - name: msg
        value: hello
    outputs:
      - name: result
`,
		},
		{
			name:        "empty document",
			content:     "   ",
			expectError: true,
			errContains: "document is empty",
		},
		{
			name:        "no tasks",
			content:     `{"name":"demo","tasks":[]}`,
			expectError: true,
			errContains: "at least one task",
		},
		{
			name:        "missing task type",
			content:     `{"name":"demo","tasks":[{"inputs":[]}]}`,
			expectError: true,
			errContains: "taskType",
		},
		{
			name:        "unnamed input port",
			content:     `{"name":"demo","tasks":[{"taskType":"t","inputs":[{"value":"x"}]}]}`,
			expectError: true,
			errContains: "input port 0 has no name",
		},
		{
			name:        "duplicate output port",
			content:     `{"name":"demo","tasks":[{"taskType":"t","outputs":[{"name":"a"},{"name":"a"}]}]}`,
			expectError: true,
			errContains: "duplicate output port 'a'",
		},
		{
			name:        "port name with separator",
			content:     `{"name":"demo","tasks":[{"taskType":"t","outputs":[{"name":"../etc"}]}]}`,
			expectError: true,
			errContains: "path separators",
		},
		{
			name:        "workflow name escaping the working directory",
			content:     `{"name":"../home/user/precious","tasks":[{"taskType":"t"}]}`,
			expectError: true,
			errContains: "workflow name '../home/user/precious'",
		},
		{
			name:        "workflow name with backslash",
			content:     `{"name":"a\\b","tasks":[{"taskType":"t"}]}`,
			expectError: true,
			errContains: "path separators",
		},
		{
			name:        "workflow name dot dot",
			content:     `{"name":"..","tasks":[{"taskType":"t"}]}`,
			expectError: true,
			errContains: "path separators",
		},
		{
			name:        "malformed json",
			content:     `{"name":"demo",`,
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "workflow.json", tc.content)

			wf, err := Load(path)
			if tc.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !gerrors.HasCode(err, gerrors.CodeInvalidWorkflow) {
					t.Errorf("expected InvalidWorkflow error, got %v", err)
				}
				if tc.errContains != "" && !strings.Contains(err.Error(), tc.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wf.Name != "demo" {
				t.Errorf("expected workflow name 'demo', got %q", wf.Name)
			}
		})
	}
}

func TestLoad_Bindings(t *testing.T) {
	path := writeFile(t, "workflow.yml", `
name: demo
tasks:
  - taskType: echoTask
    inputs:
      - name: msg
        value: hello
      - name: data
        source: upstream:out
    outputs:
      - name: result
  - taskType: ignored
`)

	wf, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(wf.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(wf.Tasks))
	}
	task := wf.Tasks[0]
	if task.TaskType != "echoTask" {
		t.Errorf("expected task type 'echoTask', got %q", task.TaskType)
	}
	if len(task.Inputs) != 2 || task.Inputs[0].Value != "hello" || task.Inputs[1].Source != "upstream:out" {
		t.Errorf("unexpected inputs: %+v", task.Inputs)
	}
	if len(task.Outputs) != 1 || task.Outputs[0].Name != "result" {
		t.Errorf("unexpected outputs: %+v", task.Outputs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOutputRoot(t *testing.T) {
	wf := &Workflow{Name: "demo"}
	if got := wf.OutputRoot("/work"); got != "/work/demo_outputs" {
		t.Errorf("expected /work/demo_outputs, got %q", got)
	}

	unnamed := &Workflow{}
	if got := unnamed.OutputRoot("/work"); got != "/work/workflow_outputs" {
		t.Errorf("expected /work/workflow_outputs, got %q", got)
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", "demo", "demo.v2", "my-flow_1"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{".", "..", "a/b", `a\b`, "/abs"} {
		err := ValidateName(name)
		if !gerrors.HasCode(err, gerrors.CodeInvalidWorkflow) {
			t.Errorf("ValidateName(%q) expected InvalidWorkflow, got %v", name, err)
		}
	}
}
